// Package reconcile compares the main project's requirements against a
// subproject's and computes, per package, the narrowest mutually satisfying
// constraint or an explicit conflict.
package reconcile

import (
	"github.com/ewagner-dev/nestup/pkg/logging"
	"github.com/ewagner-dev/nestup/pkg/types"
	"github.com/ewagner-dev/nestup/pkg/version"
)

// Policy decides which side wins an irreconcilable conflict. The conflict
// is surfaced in the result either way.
type Policy string

const (
	PolicyMainWins Policy = "mainWins"
	PolicySubWins  Policy = "subWins"
)

// Reconcile merges sub's requirements into main. Packages only in sub are
// adopted; packages only in main are retained unchanged; packages in both
// are narrowed to the tightest bound satisfying both sides, or flagged as a
// conflict resolved by policy. The returned slice preserves main's order
// with sub-only packages appended in their manifest order.
func Reconcile(main, sub []types.Package, policy Policy) ([]types.Package, []types.ConflictRecord) {
	logger := logging.GetLogger("reconcile")

	resolved := make([]types.Package, len(main))
	copy(resolved, main)

	index := make(map[string]int, len(main))
	for i, pkg := range main {
		index[pkg.Name] = i
	}

	var conflicts []types.ConflictRecord

	for _, subPkg := range sub {
		at, inMain := index[subPkg.Name]
		if !inMain {
			index[subPkg.Name] = len(resolved)
			resolved = append(resolved, subPkg)
			continue
		}

		mainPkg := resolved[at]
		merged, ok := narrow(mainPkg.Specifiers, subPkg.Specifiers)
		if ok {
			resolved[at].Specifiers = merged
			continue
		}

		// Empty intersection: surface the conflict and apply policy.
		record := types.ConflictRecord{
			Package:        subPkg.Name,
			MainConstraint: mainPkg.Specifiers,
			SubConstraint:  subPkg.Specifiers,
			Resolution:     types.ResolutionMainWins,
		}
		if policy == PolicySubWins {
			record.Resolution = types.ResolutionSubWins
			resolved[at].Specifiers = subPkg.Specifiers
		}
		conflicts = append(conflicts, record)

		logger.Debug().
			Str("package", subPkg.Name).
			Str("main", mainPkg.Specifiers.String()).
			Str("sub", subPkg.Specifiers.String()).
			Str("resolution", string(record.Resolution)).
			Msg("Version conflict")
	}

	return resolved, conflicts
}

// narrow intersects two specifier sets. When the intersection is non-empty
// it returns the narrowest bound covering both; ok is false when no version
// can satisfy both sides.
func narrow(a, b version.SpecifierSet) (version.SpecifierSet, bool) {
	iv := intervalOf(append(append(version.SpecifierSet{}, a...), b...))
	if !iv.satisfiable() {
		return nil, false
	}
	return iv.specifiers(), true
}

// interval is a contiguous version range with point exclusions.
type interval struct {
	lower, upper version.Bound
	exclusions   []version.Specifier
}

func intervalOf(set version.SpecifierSet) interval {
	var iv interval
	for _, spec := range set {
		if spec.Op == version.OpNotEqual {
			iv.exclusions = append(iv.exclusions, spec)
			continue
		}
		lower, upper := spec.Bounds()
		iv.tightenLower(lower)
		iv.tightenUpper(upper)
	}
	return iv
}

// tightenLower keeps the higher lower bound; on a tie the exclusive bound
// is tighter.
func (iv *interval) tightenLower(b version.Bound) {
	if !b.Defined {
		return
	}
	if !iv.lower.Defined {
		iv.lower = b
		return
	}
	cmp := version.Compare(b.Version, iv.lower.Version)
	if cmp > 0 || (cmp == 0 && !b.Inclusive) {
		iv.lower = b
	}
}

// tightenUpper keeps the lower upper bound; on a tie the exclusive bound
// is tighter.
func (iv *interval) tightenUpper(b version.Bound) {
	if !b.Defined {
		return
	}
	if !iv.upper.Defined {
		iv.upper = b
		return
	}
	cmp := version.Compare(b.Version, iv.upper.Version)
	if cmp < 0 || (cmp == 0 && !b.Inclusive) {
		iv.upper = b
	}
}

func (iv interval) satisfiable() bool {
	if iv.lower.Defined && iv.upper.Defined {
		cmp := version.Compare(iv.lower.Version, iv.upper.Version)
		if cmp > 0 {
			return false
		}
		if cmp == 0 {
			if !iv.lower.Inclusive || !iv.upper.Inclusive {
				return false
			}
			// A single-point range killed by an exclusion is empty.
			for _, excl := range iv.exclusions {
				if version.Equal(excl.Version, iv.lower.Version) {
					return false
				}
			}
		}
	}
	return true
}

// specifiers renders the interval back into a specifier set: an exact pin
// for a single point, otherwise the surviving bounds plus any exclusions
// that still fall inside them.
func (iv interval) specifiers() version.SpecifierSet {
	var out version.SpecifierSet

	if iv.lower.Defined && iv.upper.Defined &&
		version.Equal(iv.lower.Version, iv.upper.Version) {
		return version.SpecifierSet{{Op: version.OpExact, Version: iv.lower.Version}}
	}

	if iv.lower.Defined {
		op := version.OpGT
		if iv.lower.Inclusive {
			op = version.OpGTE
		}
		out = append(out, version.Specifier{Op: op, Version: iv.lower.Version})
	}
	if iv.upper.Defined {
		op := version.OpLT
		if iv.upper.Inclusive {
			op = version.OpLTE
		}
		out = append(out, version.Specifier{Op: op, Version: iv.upper.Version})
	}
	for _, excl := range iv.exclusions {
		if iv.lower.Defined && version.Compare(excl.Version, iv.lower.Version) < 0 {
			continue
		}
		if iv.upper.Defined && version.Compare(excl.Version, iv.upper.Version) > 0 {
			continue
		}
		out = append(out, excl)
	}
	return out
}
