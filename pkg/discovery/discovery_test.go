package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/filesystem"
	"github.com/ewagner-dev/nestup/pkg/types"
)

func mkdirs(t *testing.T, fs types.FS, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		require.NoError(t, fs.MkdirAll(dir, 0755))
	}
}

func touch(t *testing.T, fs types.FS, path string) {
	t.Helper()
	require.NoError(t, fs.WriteFile(path, []byte{}, 0644))
}

func names(subs []types.SubprojectInfo) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.RelPath
	}
	return out
}

func TestDiscoverFindsManifestAndRepoDirs(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/sub_a", "root/sub_b/.git", "root/plain")
	touch(t, fs, "root/sub_a/requirements.txt")

	subs, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a", "sub_b"}, names(subs))

	assert.True(t, subs[0].HasManifest)
	assert.False(t, subs[0].HasRepository)
	assert.False(t, subs[1].HasManifest)
	assert.True(t, subs[1].HasRepository)
}

func TestDiscoverRootNeverReported(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/sub_a")
	touch(t, fs, "root/requirements.txt")
	touch(t, fs, "root/sub_a/requirements.txt")

	subs, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a"}, names(subs))
}

func TestDiscoverNoNestedSubprojects(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/sub_a/vendor/dep/.git")
	touch(t, fs, "root/sub_a/requirements.txt")
	touch(t, fs, "root/sub_a/vendor/dep/requirements.txt")

	subs, err := Discover(fs, "root", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a"}, names(subs))
}

func TestDiscoverMaxDepth(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/a/b/c")
	touch(t, fs, "root/a/b/c/requirements.txt")

	subs, err := Discover(fs, "root", 2, nil)
	require.NoError(t, err)
	assert.Empty(t, subs)

	subs, err = Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b/c"}, names(subs))
}

func TestDiscoverIgnoreNames(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/venv", "root/sub_a")
	touch(t, fs, "root/venv/requirements.txt")
	touch(t, fs, "root/sub_a/requirements.txt")

	subs, err := Discover(fs, "root", 3, []string{"venv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a"}, names(subs))
}

func TestDiscoverSkipsHiddenDirs(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/.cache", "root/sub_a")
	touch(t, fs, "root/.cache/requirements.txt")
	touch(t, fs, "root/sub_a/requirements.txt")

	subs, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a"}, names(subs))
}

func TestDiscoverHonorsSkipConfig(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/sub_a", "root/sub_b")
	touch(t, fs, "root/sub_a/requirements.txt")
	touch(t, fs, "root/sub_b/requirements.txt")
	require.NoError(t, fs.WriteFile("root/sub_b/.nestup.toml", []byte("skip = true\n"), 0644))

	subs, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub_a"}, names(subs))
}

func TestDiscoverOrderingStable(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/zeta", "root/alpha", "root/mid/inner")
	touch(t, fs, "root/zeta/requirements.txt")
	touch(t, fs, "root/alpha/requirements.txt")
	touch(t, fs, "root/mid/inner/requirements.txt")

	first, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	second, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mid/inner", "zeta"}, names(first))
	assert.Equal(t, names(first), names(second))
}

func TestDiscoverMissingRoot(t *testing.T) {
	fs := filesystem.NewMemory()
	_, err := Discover(fs, "nowhere", 3, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDiscovery))
}

func TestDiscoverRootNotADirectory(t *testing.T) {
	fs := filesystem.NewMemory()
	touch(t, fs, "afile")
	_, err := Discover(fs, "afile", 3, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDiscovery))
}

func TestDiscoverEmptyTree(t *testing.T) {
	fs := filesystem.NewMemory()
	mkdirs(t, fs, "root/plain/other")

	subs, err := Discover(fs, "root", 3, nil)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
