// Package version models package versions and requirement specifiers.
//
// Versions are a thin wrapper around github.com/Masterminds/semver/v3,
// which gives us dotted-version ordering with zero-padding of partial
// versions and prerelease tags sorting before their release (1.0.0-rc1
// < 1.0.0).
package version

import (
	mm "github.com/Masterminds/semver/v3"

	"github.com/ewagner-dev/nestup/pkg/errors"
)

// Version is an immutable semantic version.
type Version struct {
	v *mm.Version
}

// Parse parses a version string such as "1.4.2", "2.0" or "1.0.0-rc1".
// Missing minor/patch components are zero-padded. Returns a PARSE_ERROR
// for empty, non-numeric or otherwise malformed input.
func Parse(raw string) (Version, error) {
	if raw == "" {
		return Version{}, errors.New(errors.ErrVersionParse, "empty version string")
	}
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, errors.Wrapf(err, errors.ErrVersionParse, "invalid version %q", raw)
	}
	return Version{v: v}, nil
}

// MustParse parses a version string and panics on failure. For tests and
// compiled-in constants only.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// New builds a version from numeric components.
func New(major, minor, patch uint64) Version {
	return Version{v: mm.New(major, minor, patch, "", "")}
}

// IsZero reports whether v is the zero value (not a parsed version).
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.v.Major() }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.v.Minor() }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.v.Patch() }

// Prerelease returns the prerelease tag, if any.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// Compare compares a and b, returning:
//
//	-1 if a < b
//	 0 if a == b
//	 1 if a > b
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// Equal reports whether a and b denote the same version.
func Equal(a, b Version) bool {
	return Compare(a, b) == 0
}

// Max returns the greater of a and b.
func Max(a, b Version) Version {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// Min returns the lesser of a and b.
func Min(a, b Version) Version {
	if Compare(a, b) <= 0 {
		return a
	}
	return b
}
