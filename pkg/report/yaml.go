package report

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ewagner-dev/nestup/pkg/types"
)

// The view types pin down the machine-readable field names independently
// of the internal structs.

type reportView struct {
	GeneratedAt string       `yaml:"generatedAt"`
	Mode        string       `yaml:"mode"`
	Summary     summaryView  `yaml:"summary"`
	Subprojects []resultView `yaml:"subprojects"`
}

type summaryView struct {
	Subprojects       int      `yaml:"subprojects"`
	ReposUpdated      int      `yaml:"reposUpdated"`
	ReposFetched      int      `yaml:"reposFetched"`
	ReposSkipped      int      `yaml:"reposSkipped"`
	ReposFailed       int      `yaml:"reposFailed"`
	InstallsPerformed int      `yaml:"installsPerformed"`
	InstallsSkipped   int      `yaml:"installsSkipped"`
	InstallsFailed    int      `yaml:"installsFailed"`
	Conflicts         int      `yaml:"conflicts"`
	UniquePackages    []string `yaml:"uniquePackages,omitempty"`
	Failed            []string `yaml:"failed,omitempty"`
}

type resultView struct {
	Subproject     string         `yaml:"subproject"`
	RepoState      string         `yaml:"repoState,omitempty"`
	RepoAction     string         `yaml:"repoAction"`
	Install        string         `yaml:"install"`
	RemoteURL      string         `yaml:"remoteUrl,omitempty"`
	LastCommit     string         `yaml:"lastCommit,omitempty"`
	Packages       []string       `yaml:"packages,omitempty"`
	FailedPackages []string       `yaml:"failedPackages,omitempty"`
	Conflicts      []conflictView `yaml:"conflicts,omitempty"`
	Error          string         `yaml:"error,omitempty"`
	Message        string         `yaml:"message,omitempty"`
}

type conflictView struct {
	Package        string `yaml:"package"`
	MainConstraint string `yaml:"mainConstraint"`
	SubConstraint  string `yaml:"subConstraint"`
	Resolution     string `yaml:"resolution"`
}

// RenderYAML writes the machine-readable report.
func RenderYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(viewOf(r))
}

func viewOf(r Report) reportView {
	view := reportView{
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Mode:        string(r.Mode),
		Summary: summaryView{
			Subprojects:       r.Summary.Subprojects,
			ReposUpdated:      r.Summary.ReposUpdated,
			ReposFetched:      r.Summary.ReposFetched,
			ReposSkipped:      r.Summary.ReposSkipped,
			ReposFailed:       r.Summary.ReposFailed,
			InstallsPerformed: r.Summary.InstallsPerformed,
			InstallsSkipped:   r.Summary.InstallsSkipped,
			InstallsFailed:    r.Summary.InstallsFailed,
			Conflicts:         r.Summary.Conflicts,
			UniquePackages:    r.Summary.UniquePackages,
			Failed:            r.Summary.FailedSubprojects,
		},
	}
	for _, res := range r.Results {
		view.Subprojects = append(view.Subprojects, resultViewOf(res))
	}
	return view
}

func resultViewOf(res types.OperationResult) resultView {
	v := resultView{
		Subproject:     res.Subproject,
		RepoState:      string(res.RepoState),
		RepoAction:     string(res.RepoAction),
		Install:        string(res.Install),
		RemoteURL:      res.RemoteURL,
		FailedPackages: res.FailedPackages,
		Error:          string(res.Error),
		Message:        res.Message,
	}
	if !res.LastCommit.IsZero() {
		v.LastCommit = res.LastCommit.Format(time.RFC3339)
	}
	for _, pkg := range res.Packages {
		v.Packages = append(v.Packages, pkg.String())
	}
	for _, c := range res.Conflicts {
		v.Conflicts = append(v.Conflicts, conflictView{
			Package:        c.Package,
			MainConstraint: c.MainConstraint.String(),
			SubConstraint:  c.SubConstraint.String(),
			Resolution:     string(c.Resolution),
		})
	}
	return v
}
