// Package engine drives one run: discovery, per-subproject repository and
// install steps, and conflict reconciliation against the accumulated main
// requirement set.
//
// The engine computes the same decisions whether it runs in preview or
// execute mode. Mode lives entirely in the recorder backends it is handed:
// the engine calls them unconditionally, and a preview recorder records
// the intended mutation instead of performing it.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ewagner-dev/nestup/pkg/config"
	"github.com/ewagner-dev/nestup/pkg/discovery"
	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/installer"
	"github.com/ewagner-dev/nestup/pkg/logging"
	"github.com/ewagner-dev/nestup/pkg/manifest"
	"github.com/ewagner-dev/nestup/pkg/reconcile"
	"github.com/ewagner-dev/nestup/pkg/types"
	"github.com/ewagner-dev/nestup/pkg/vcs"
)

// Options wires the engine's collaborators.
type Options struct {
	Config    config.Config
	FS        types.FS
	VCS       vcs.Backend
	Installer installer.Backend
}

// Engine orchestrates one run over a discovered set of subprojects.
type Engine struct {
	cfg       config.Config
	fs        types.FS
	vcs       vcs.Backend
	installer installer.Backend
	logger    zerolog.Logger
}

// New creates an engine from the given options.
func New(opts Options) *Engine {
	return &Engine{
		cfg:       opts.Config,
		fs:        opts.FS,
		vcs:       opts.VCS,
		installer: opts.Installer,
		logger:    logging.GetLogger("engine"),
	}
}

// Run discovers subprojects and processes them in discovery order. Failures
// are isolated per subproject; only discovery problems (or a malformed main
// manifest, which would poison every reconciliation) abort the run.
// Cancellation stops before the next subproject; completed results are
// returned intact.
func (e *Engine) Run(ctx context.Context) ([]types.OperationResult, error) {
	subs, err := discovery.Discover(e.fs, e.cfg.RootPath, e.cfg.MaxDepth, e.cfg.Ignore)
	if err != nil {
		return nil, err
	}

	mainReqs, hasMain, err := manifest.Load(e.fs, e.cfg.RootPath)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Int("subprojects", len(subs)).
		Bool("mainManifest", hasMain).
		Int("mainRequirements", len(mainReqs)).
		Msg("Starting run")

	results := make([]types.OperationResult, 0, len(subs))
	for _, sub := range subs {
		if ctx.Err() != nil {
			e.logger.Warn().Int("completed", len(results)).Msg("Run cancelled")
			break
		}

		result, updated := e.processSubproject(ctx, sub, mainReqs)
		mainReqs = updated
		results = append(results, result)
	}

	return results, nil
}

// processSubproject walks one subproject through the state machine:
// status check, repo action, manifest parse, reconciliation, install.
// It returns the result and the (possibly narrowed) main requirement set
// for the next iteration.
func (e *Engine) processSubproject(ctx context.Context, sub types.SubprojectInfo, mainReqs []types.Package) (types.OperationResult, []types.Package) {
	logger := e.logger.With().Str("subproject", sub.RelPath).Logger()
	logger.Info().Msg("Processing subproject")

	result := types.OperationResult{
		Subproject: sub.RelPath,
		RepoAction: types.RepoSkipped,
		Install:    types.InstallNotAttempted,
	}

	if sub.HasRepository {
		if ok := e.repoStep(ctx, sub, &result, logger); !ok {
			result.Install = types.InstallSkipped
			return result, mainReqs
		}
	}

	if e.cfg.GitOnly {
		result.Install = types.InstallSkipped
		return result, mainReqs
	}

	if !sub.HasManifest {
		result.Install = types.InstallSkipped
		return result, mainReqs
	}

	reqs, _, err := manifest.Load(e.fs, sub.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Manifest parse failed, skipping install")
		result.Install = types.InstallSkipped
		result.Error = errors.ErrManifestParse
		result.Message = err.Error()
		return result, mainReqs
	}

	resolved, conflicts := reconcile.Reconcile(mainReqs, reqs, e.policyFor(sub))
	result.Conflicts = conflicts

	// Install the resolved constraint for every package this subproject
	// names, in manifest order.
	byName := make(map[string]types.Package, len(resolved))
	for _, pkg := range resolved {
		byName[pkg.Name] = pkg
	}
	specs := make([]string, 0, len(reqs))
	packages := make([]types.Package, 0, len(reqs))
	for _, req := range reqs {
		pkg := byName[req.Name]
		packages = append(packages, pkg)
		specs = append(specs, pkg.String())
	}
	result.Packages = packages

	e.installStep(ctx, specs, &result, logger)

	// The narrowed set carries forward regardless of install outcome; the
	// reconciliation decision stands even when execution failed.
	return result, resolved
}

// repoStep performs the status check and the update/fetch decision. The
// return value says whether the subproject may proceed to the install
// steps.
func (e *Engine) repoStep(ctx context.Context, sub types.SubprojectInfo, result *types.OperationResult, logger zerolog.Logger) bool {
	status, err := withTimeout(ctx, e.cfg.Timeout, func(c context.Context) (types.RepoStatus, error) {
		return e.vcs.Status(c, sub.Path)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Repository status check failed")
		result.RepoAction = types.RepoFailed
		result.Error = errors.GetErrorCode(err)
		result.Message = err.Error()
		return false
	}
	result.RepoState = status.State
	e.enrich(ctx, sub, result, logger)

	switch status.State {
	case types.RepoStateDirty, types.RepoStateDiverged:
		// Never install over an inconsistent checkout.
		logger.Warn().Str("state", string(status.State)).Msg("Checkout is not updatable")
		result.RepoAction = types.RepoFailed
		result.Error = errors.ErrRepoConflict
		result.Message = "checkout is " + string(status.State)
		return false

	case types.RepoStateBehind:
		if err := e.withTimeoutErr(ctx, func(c context.Context) error {
			return e.vcs.Update(c, sub.Path)
		}); err != nil {
			logger.Warn().Err(err).Msg("Repository update failed")
			result.RepoAction = types.RepoFailed
			result.Error = errors.GetErrorCode(err)
			result.Message = err.Error()
			return false
		}
		result.RepoAction = types.RepoUpdated
		logger.Info().Msg("Repository updated")

	case types.RepoStateAhead:
		// Local commits to push; fetch refs but leave the worktree alone.
		if err := e.withTimeoutErr(ctx, func(c context.Context) error {
			return e.vcs.Fetch(c, sub.Path)
		}); err != nil {
			logger.Warn().Err(err).Msg("Repository fetch failed")
			result.RepoAction = types.RepoFailed
			result.Error = errors.GetErrorCode(err)
			result.Message = err.Error()
			return false
		}
		result.RepoAction = types.RepoFetched

	default:
		result.RepoAction = types.RepoSkipped
	}

	return true
}

// installStep hands the resolved specs to the installer backend.
func (e *Engine) installStep(ctx context.Context, specs []string, result *types.OperationResult, logger zerolog.Logger) {
	if len(specs) == 0 {
		result.Install = types.InstallSkipped
		return
	}

	failed, err := withTimeout(ctx, e.cfg.Timeout, func(c context.Context) ([]string, error) {
		return e.installer.Install(c, e.cfg.EnvPath, specs)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Install failed")
		result.Install = types.InstallFailed
		result.Error = errors.GetErrorCode(err)
		result.Message = err.Error()
		return
	}
	if len(failed) > 0 {
		logger.Warn().Strs("packages", failed).Msg("Some packages failed to install")
		result.Install = types.InstallFailed
		result.FailedPackages = failed
		result.Error = errors.ErrInstall
		return
	}

	result.Install = types.InstallPerformed
	logger.Info().Int("packages", len(specs)).Msg("Packages installed")
}

// enrich records the remote URL and last commit timestamp, best effort.
func (e *Engine) enrich(ctx context.Context, sub types.SubprojectInfo, result *types.OperationResult, logger zerolog.Logger) {
	if url, err := e.vcs.RemoteURL(ctx, sub.Path); err == nil && url != "" {
		result.RemoteURL = url
		logger.Debug().Str("url", url).Msg("Resolved remote URL")
	}
	if ts, err := e.vcs.LastCommit(ctx, sub.Path); err == nil {
		result.LastCommit = ts
	}
}

// policyFor decides the conflict policy for one subproject: subWins only
// when allowed globally or by the subproject's own config.
func (e *Engine) policyFor(sub types.SubprojectInfo) reconcile.Policy {
	if e.cfg.AllowOverride {
		return reconcile.PolicySubWins
	}
	if subCfg, found, err := config.LoadSubprojectConfig(e.fs, sub.Path); err == nil && found && subCfg.AllowOverride {
		return reconcile.PolicySubWins
	}
	return reconcile.PolicyMainWins
}

func (e *Engine) withTimeoutErr(ctx context.Context, fn func(context.Context) error) error {
	_, err := withTimeout(ctx, e.cfg.Timeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, fn(c)
	})
	return err
}

func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(c)
}
