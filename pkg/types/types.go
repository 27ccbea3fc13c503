package types

import (
	"strings"
	"time"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/version"
)

// Package is a named requirement with zero or more version specifiers.
// No specifiers means any version is acceptable. Names are normalized to
// lowercase so "Requests" and "requests" are the same package.
type Package struct {
	Name       string
	Specifiers version.SpecifierSet
}

// NewPackage builds a package with a normalized name.
func NewPackage(name string, specs version.SpecifierSet) Package {
	return Package{Name: NormalizeName(name), Specifiers: specs}
}

// NormalizeName lowercases a package name for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p Package) String() string {
	if len(p.Specifiers) == 0 {
		return p.Name
	}
	return p.Name + p.Specifiers.String()
}

// SubprojectInfo describes one discovered subproject. It is created during
// discovery and read-only afterwards.
type SubprojectInfo struct {
	// Path is the absolute path to the subproject directory.
	Path string

	// RelPath is the path relative to the root, used for deterministic
	// ordering and reporting.
	RelPath string

	// Name is the subproject name (the directory base name).
	Name string

	HasManifest   bool
	HasRepository bool
}

// RepoState classifies a checkout relative to its upstream.
type RepoState string

const (
	RepoStateClean    RepoState = "clean"
	RepoStateDirty    RepoState = "dirty"
	RepoStateAhead    RepoState = "ahead"
	RepoStateBehind   RepoState = "behind"
	RepoStateDiverged RepoState = "diverged"
)

// RepoStatus is the result of a version-control status query.
type RepoStatus struct {
	State      RepoState
	CurrentRef string

	// CleanedByFiltering is set when the checkout looked dirty only
	// through ignorable build artifacts.
	CleanedByFiltering bool
}

// RepoAction is the repository-step outcome for one subproject.
type RepoAction string

const (
	RepoUpdated RepoAction = "updated"
	RepoFetched RepoAction = "fetched"
	RepoSkipped RepoAction = "skipped"
	RepoFailed  RepoAction = "failed"
)

// InstallAction is the install-step outcome for one subproject.
type InstallAction string

const (
	InstallPerformed    InstallAction = "installed"
	InstallSkipped      InstallAction = "skipped"
	InstallFailed       InstallAction = "failed"
	InstallNotAttempted InstallAction = "not-attempted"
)

// Resolution says how a version conflict was settled.
type Resolution string

const (
	ResolutionMainWins   Resolution = "mainWins"
	ResolutionSubWins    Resolution = "subWins"
	ResolutionUnresolved Resolution = "unresolved"
)

// ConflictRecord captures one irreconcilable requirement pair.
type ConflictRecord struct {
	Package        string
	MainConstraint version.SpecifierSet
	SubConstraint  version.SpecifierSet
	Resolution     Resolution
}

// OperationResult is the per-subproject outcome of one run. Exactly one is
// produced per subproject; it is immutable after the engine records it.
type OperationResult struct {
	Subproject string
	RepoState  RepoState
	RepoAction RepoAction
	Install    InstallAction
	Conflicts  []ConflictRecord

	// RemoteURL and LastCommit enrich the report; both are best effort.
	RemoteURL  string
	LastCommit time.Time

	// Packages is the resolved install list for this subproject.
	Packages []Package

	// FailedPackages lists packages the installer reported errors for.
	FailedPackages []string

	// Error identifies the failure kind when a step failed.
	Error errors.ErrorCode

	// Message carries failure detail for the report.
	Message string
}

// Failed reports whether this subproject ended in a failure state.
func (r OperationResult) Failed() bool {
	return r.RepoAction == RepoFailed || r.Install == InstallFailed
}
