// Package report turns a run's operation results into the final summary
// and renders it as terminal text, YAML, or JUnit XML.
package report

import (
	"sort"
	"time"

	"github.com/ewagner-dev/nestup/pkg/types"
)

// Mode says whether the run previewed or executed its mutations.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeExecute Mode = "execute"
)

// Report is the complete outcome of one run.
type Report struct {
	GeneratedAt time.Time
	Mode        Mode
	Results     []types.OperationResult
	Summary     Summary
}

// Summary aggregates per-subproject outcomes.
type Summary struct {
	Subprojects int

	ReposUpdated int
	ReposFetched int
	ReposSkipped int
	ReposFailed  int

	InstallsPerformed int
	InstallsSkipped   int
	InstallsFailed    int

	Conflicts int

	// UniquePackages is the sorted set of package names that appeared in
	// any subproject's resolved install list.
	UniquePackages []string

	// FailedSubprojects lists the relative paths of subprojects whose
	// processing failed, in run order.
	FailedSubprojects []string
}

// New builds a report from the results of one run.
func New(results []types.OperationResult, execute bool) Report {
	mode := ModePreview
	if execute {
		mode = ModeExecute
	}

	summary := Summary{Subprojects: len(results)}
	seen := make(map[string]bool)
	for _, r := range results {
		for _, pkg := range r.Packages {
			if !seen[pkg.Name] {
				seen[pkg.Name] = true
				summary.UniquePackages = append(summary.UniquePackages, pkg.Name)
			}
		}
		switch r.RepoAction {
		case types.RepoUpdated:
			summary.ReposUpdated++
		case types.RepoFetched:
			summary.ReposFetched++
		case types.RepoFailed:
			summary.ReposFailed++
		default:
			summary.ReposSkipped++
		}

		switch r.Install {
		case types.InstallPerformed:
			summary.InstallsPerformed++
		case types.InstallFailed:
			summary.InstallsFailed++
		default:
			summary.InstallsSkipped++
		}

		summary.Conflicts += len(r.Conflicts)
		if r.Failed() {
			summary.FailedSubprojects = append(summary.FailedSubprojects, r.Subproject)
		}
	}
	sort.Strings(summary.UniquePackages)

	return Report{
		GeneratedAt: time.Now().UTC(),
		Mode:        mode,
		Results:     results,
		Summary:     summary,
	}
}

// AllFailed reports whether every subproject failed. A run over zero
// subprojects did not fail; it just had nothing to do.
func (r Report) AllFailed() bool {
	return r.Summary.Subprojects > 0 &&
		len(r.Summary.FailedSubprojects) == r.Summary.Subprojects
}

// AnyFailed reports whether at least one subproject failed.
func (r Report) AnyFailed() bool {
	return len(r.Summary.FailedSubprojects) > 0
}
