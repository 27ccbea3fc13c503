package version

import (
	"strings"

	"github.com/ewagner-dev/nestup/pkg/errors"
)

// Op is a comparison operator in a version specifier.
type Op string

// Specifier operators, longest first so parsing can match greedily.
const (
	OpExact      Op = "=="
	OpNotEqual   Op = "!="
	OpGTE        Op = ">="
	OpLTE        Op = "<="
	OpCompatible Op = "~="
	OpGT         Op = ">"
	OpLT         Op = "<"
)

var ops = []Op{OpExact, OpNotEqual, OpGTE, OpLTE, OpCompatible, OpGT, OpLT}

// Specifier is a single version constraint: an operator paired with a
// version. The compatible-release operator (~=) locks the leading
// components and lets the last given one float upward, so ~=1.4.2 means
// >=1.4.2, <1.5.0 and ~=1.4 means >=1.4, <2.0.
type Specifier struct {
	Op      Op
	Version Version

	// segments is how many numeric components the version literal carried,
	// which decides the ~= upper bound.
	segments int
}

// ParseSpecifier parses a single specifier such as ">=1.2.0" or "~=1.4".
func ParseSpecifier(raw string) (Specifier, error) {
	raw = strings.TrimSpace(raw)
	for _, op := range ops {
		if strings.HasPrefix(raw, string(op)) {
			literal := strings.TrimSpace(raw[len(op):])
			v, err := Parse(literal)
			if err != nil {
				return Specifier{}, err
			}
			segs := countSegments(literal)
			if op == OpCompatible && segs < 2 {
				return Specifier{}, errors.Newf(errors.ErrVersionParse,
					"compatible-release specifier needs at least two components: %q", raw)
			}
			return Specifier{Op: op, Version: v, segments: segs}, nil
		}
	}
	return Specifier{}, errors.Newf(errors.ErrVersionParse, "invalid specifier %q", raw)
}

// MustParseSpecifier parses a specifier and panics on failure. Tests only.
func MustParseSpecifier(raw string) Specifier {
	s, err := ParseSpecifier(raw)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Specifier) String() string {
	return string(s.Op) + s.Version.String()
}

// Satisfies reports whether candidate meets this constraint.
func (s Specifier) Satisfies(candidate Version) bool {
	cmp := Compare(candidate, s.Version)
	switch s.Op {
	case OpExact:
		return cmp == 0
	case OpNotEqual:
		return cmp != 0
	case OpGTE:
		return cmp >= 0
	case OpLTE:
		return cmp <= 0
	case OpGT:
		return cmp > 0
	case OpLT:
		return cmp < 0
	case OpCompatible:
		return cmp >= 0 && Compare(candidate, s.compatibleUpper()) < 0
	}
	return false
}

// compatibleUpper is the exclusive upper bound implied by ~=.
func (s Specifier) compatibleUpper() Version {
	if s.segments >= 3 {
		return New(s.Version.Major(), s.Version.Minor()+1, 0)
	}
	return New(s.Version.Major()+1, 0, 0)
}

// Bound is one side of a version interval.
type Bound struct {
	Version   Version
	Inclusive bool
	Defined   bool
}

// Bounds returns the interval implied by this specifier. != constrains
// neither side; callers carry exclusions separately.
func (s Specifier) Bounds() (lower, upper Bound) {
	switch s.Op {
	case OpExact:
		lower = Bound{Version: s.Version, Inclusive: true, Defined: true}
		upper = Bound{Version: s.Version, Inclusive: true, Defined: true}
	case OpGTE:
		lower = Bound{Version: s.Version, Inclusive: true, Defined: true}
	case OpGT:
		lower = Bound{Version: s.Version, Defined: true}
	case OpLTE:
		upper = Bound{Version: s.Version, Inclusive: true, Defined: true}
	case OpLT:
		upper = Bound{Version: s.Version, Defined: true}
	case OpCompatible:
		lower = Bound{Version: s.Version, Inclusive: true, Defined: true}
		upper = Bound{Version: s.compatibleUpper(), Defined: true}
	}
	return lower, upper
}

// countSegments counts the dotted numeric components of a version literal,
// ignoring any prerelease or build suffix.
func countSegments(literal string) int {
	if i := strings.IndexAny(literal, "-+"); i >= 0 {
		literal = literal[:i]
	}
	if literal == "" {
		return 0
	}
	return strings.Count(literal, ".") + 1
}

// SpecifierSet is a conjunction of specifiers; all must hold. An empty set
// means any version satisfies.
type SpecifierSet []Specifier

// ParseSet parses a comma-separated list of specifiers such as
// ">=1.2,<2.0". An empty string yields an empty set.
func ParseSet(raw string) (SpecifierSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var set SpecifierSet
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec, err := ParseSpecifier(part)
		if err != nil {
			return nil, err
		}
		set = append(set, spec)
	}
	return set, nil
}

// MustParseSet parses a specifier list and panics on failure. Tests only.
func MustParseSet(raw string) SpecifierSet {
	set, err := ParseSet(raw)
	if err != nil {
		panic(err)
	}
	return set
}

// Satisfies reports whether candidate meets every specifier in the set.
func (ss SpecifierSet) Satisfies(candidate Version) bool {
	for _, s := range ss {
		if !s.Satisfies(candidate) {
			return false
		}
	}
	return true
}

func (ss SpecifierSet) String() string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
