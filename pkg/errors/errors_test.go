package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrDiscovery, "root path does not exist")
	assert.Equal(t, ErrDiscovery, err.Code)
	assert.Equal(t, "[DISCOVERY_ERROR] root path does not exist", err.Error())
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("permission denied")
	err := Wrap(inner, ErrFileAccess, "cannot read manifest")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "FILE_ACCESS")
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInstall, "should be nil"))
	assert.Nil(t, Wrapf(nil, ErrInstall, "should be %s", "nil"))
}

func TestIsErrorCode(t *testing.T) {
	err := Newf(ErrRepoConflict, "checkout at %s is dirty", "/tmp/sub")
	assert.True(t, IsErrorCode(err, ErrRepoConflict))
	assert.False(t, IsErrorCode(err, ErrInstall))

	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsErrorCode(wrapped, ErrRepoConflict))
	assert.False(t, IsErrorCode(fmt.Errorf("plain"), ErrRepoConflict))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrBackendTimeout, GetErrorCode(New(ErrBackendTimeout, "git fetch timed out")))
	assert.Equal(t, ErrUnknown, GetErrorCode(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrManifestParse, "bad requirement line").
		WithDetail("line", 12).
		WithDetail("file", "requirements.txt")
	assert.Equal(t, 12, err.Details["line"])
	assert.Equal(t, "requirements.txt", err.Details["file"])
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := New(ErrVersionParse, "one message")
	b := New(ErrVersionParse, "another message")
	assert.True(t, errors.Is(a, b))
}
