package vcs

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/logging"
	"github.com/ewagner-dev/nestup/pkg/types"
)

// artifactPatterns are generated files that never count as real worktree
// changes when classifying a checkout.
var artifactPatterns = []string{
	"*.pyc",
	"*.pyo",
	"*.pyd",
	"*.so",
	"*.egg",
	"__pycache__/",
	"*.egg-info/",
	".pytest_cache/",
	".mypy_cache/",
	".tox/",
	".eggs/",
	"build/",
	"dist/",
	"htmlcov/",
	".coverage",
}

// ShellGit implements Backend by shelling out to the git command.
type ShellGit struct{}

// NewShellGit creates a git backend that uses the git command.
func NewShellGit() *ShellGit {
	return &ShellGit{}
}

// Status runs git status --porcelain --branch and classifies the checkout.
// Changes matching the artifact patterns are filtered out before deciding
// whether the worktree is dirty.
func (g *ShellGit) Status(ctx context.Context, path string) (types.RepoStatus, error) {
	out, err := g.run(ctx, path, "status", "--porcelain", "--branch")
	if err != nil {
		return types.RepoStatus{}, err
	}
	return parseStatus(out), nil
}

// Fetch downloads upstream refs for the checkout at path.
func (g *ShellGit) Fetch(ctx context.Context, path string) error {
	_, err := g.run(ctx, path, "fetch")
	return err
}

// Update fast-forwards the checkout to its upstream.
func (g *ShellGit) Update(ctx context.Context, path string) error {
	_, err := g.run(ctx, path, "pull", "--ff-only")
	return err
}

// RemoteURL reports the origin URL, normalizing the scp-style github form
// to https. Returns "" without error when there is no origin.
func (g *ShellGit) RemoteURL(ctx context.Context, path string) (string, error) {
	out, err := g.run(ctx, path, "remote", "get-url", "origin")
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrBackendTimeout) {
			return "", err
		}
		return "", nil
	}
	url := strings.TrimSpace(out)
	if strings.HasPrefix(url, "git@github.com:") {
		url = strings.Replace(url, "git@github.com:", "https://github.com/", 1)
	}
	return url, nil
}

// LastCommit reports the committer timestamp of HEAD.
func (g *ShellGit) LastCommit(ctx context.Context, path string) (time.Time, error) {
	out, err := g.run(ctx, path, "log", "-1", "--format=%cI")
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(out))
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrInternal, "unparseable commit timestamp")
	}
	return ts, nil
}

func (g *ShellGit) run(ctx context.Context, path string, args ...string) (string, error) {
	logger := logging.GetLogger("vcs.git")

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", path}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.Wrapf(ctx.Err(), errors.ErrBackendTimeout, "git %s timed out", args[0]).
				WithDetail("path", path)
		}
		logger.Debug().Err(err).Str("path", path).Strs("args", args).Msg("git command failed")
		return "", errors.Wrapf(err, errors.ErrRepoUpdate, "git %s failed", args[0]).
			WithDetail("path", path)
	}
	return string(out), nil
}

// parseStatus classifies porcelain --branch output. The first line carries
// the branch and its ahead/behind counters; the rest are worktree changes.
func parseStatus(out string) types.RepoStatus {
	status := types.RepoStatus{State: types.RepoStateClean}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	changed := 0
	filtered := 0
	for _, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			status.CurrentRef, status.State = parseBranchLine(line)
			continue
		}
		if isArtifactChange(line) {
			filtered++
			continue
		}
		changed++
	}

	if changed > 0 {
		status.State = types.RepoStateDirty
	}
	status.CleanedByFiltering = changed == 0 && filtered > 0
	return status
}

func parseBranchLine(line string) (ref string, state types.RepoState) {
	state = types.RepoStateClean

	rest := strings.TrimPrefix(line, "## ")
	if i := strings.Index(rest, "..."); i >= 0 {
		ref = rest[:i]
	} else if i := strings.IndexByte(rest, ' '); i >= 0 {
		ref = rest[:i]
	} else {
		ref = rest
	}

	ahead := strings.Contains(rest, "[ahead ")
	behind := strings.Contains(rest, "behind ")
	switch {
	case ahead && behind:
		state = types.RepoStateDiverged
	case ahead:
		state = types.RepoStateAhead
	case behind:
		state = types.RepoStateBehind
	}
	return ref, state
}

// isArtifactChange reports whether a porcelain change line only touches a
// generated build artifact.
func isArtifactChange(line string) bool {
	if len(line) < 4 {
		return false
	}
	name := strings.TrimSpace(line[3:])
	// Renames report "old -> new"; classify by the new path.
	if i := strings.Index(name, " -> "); i >= 0 {
		name = name[i+4:]
	}

	for _, pattern := range artifactPatterns {
		if strings.HasSuffix(pattern, "/") {
			dir := strings.TrimSuffix(pattern, "/")
			for _, part := range strings.Split(filepath.ToSlash(name), "/") {
				if ok, _ := filepath.Match(dir, part); ok {
					return true
				}
			}
			continue
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(name)); ok {
			return true
		}
	}
	return false
}
