package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pterm/pterm"

	"github.com/ewagner-dev/nestup/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#fafafa"})
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6b6b6b", Dark: "#8a8a8a"})
)

// UseColor decides whether output to f should carry ANSI styling. NO_COLOR,
// pipes, and dumb terminals all disable it.
func UseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// RenderText writes the human-readable report. With color false every
// style collapses to plain text so piped output stays clean.
func RenderText(w io.Writer, r Report, color bool) error {
	var b strings.Builder

	title := fmt.Sprintf("nestup %s run", r.Mode)
	if color {
		b.WriteString(titleStyle.Render(title))
	} else {
		b.WriteString(title)
	}
	b.WriteString("\n\n")

	rows := pterm.TableData{{"SUBPROJECT", "REPO", "ACTION", "INSTALL", "NOTE"}}
	for _, res := range r.Results {
		rows = append(rows, []string{
			res.Subproject,
			string(res.RepoState),
			actionLabel(res.RepoAction, color),
			installLabel(res.Install, color),
			note(res),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	if !color {
		table = pterm.RemoveColorFromString(table)
	}
	b.WriteString(table)
	b.WriteString("\n")

	for _, res := range r.Results {
		for _, c := range res.Conflicts {
			line := fmt.Sprintf("conflict in %s: %s wants %q, main has %q (%s)",
				res.Subproject, c.Package, c.SubConstraint.String(), c.MainConstraint.String(), c.Resolution)
			if color {
				line = mutedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + summaryLine(r.Summary) + "\n")
	if r.Mode == ModePreview {
		hint := "preview only, re-run with --execute to apply"
		if color {
			hint = mutedStyle.Render(hint)
		}
		b.WriteString(hint + "\n")
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func summaryLine(s Summary) string {
	return fmt.Sprintf("%d subprojects: %d repos updated, %d fetched, %d failed; %d installs, %d failed; %d packages, %d conflicts",
		s.Subprojects, s.ReposUpdated, s.ReposFetched, s.ReposFailed,
		s.InstallsPerformed, s.InstallsFailed, len(s.UniquePackages), s.Conflicts)
}

func actionLabel(a types.RepoAction, color bool) string {
	if !color {
		return string(a)
	}
	switch a {
	case types.RepoUpdated, types.RepoFetched:
		return pterm.NewStyle(pterm.FgGreen).Sprint(string(a))
	case types.RepoFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(string(a))
	default:
		return pterm.NewStyle(pterm.FgGray).Sprint(string(a))
	}
}

func installLabel(a types.InstallAction, color bool) string {
	if !color {
		return string(a)
	}
	switch a {
	case types.InstallPerformed:
		return pterm.NewStyle(pterm.FgGreen).Sprint(string(a))
	case types.InstallFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(string(a))
	default:
		return pterm.NewStyle(pterm.FgGray).Sprint(string(a))
	}
}

func note(res types.OperationResult) string {
	if res.Message != "" {
		return res.Message
	}
	if len(res.FailedPackages) > 0 {
		return "failed: " + strings.Join(res.FailedPackages, ", ")
	}
	return ""
}
