package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewagner-dev/nestup/pkg/config"
	"github.com/ewagner-dev/nestup/pkg/errors"
	"github.com/ewagner-dev/nestup/pkg/filesystem"
	"github.com/ewagner-dev/nestup/pkg/installer"
	"github.com/ewagner-dev/nestup/pkg/types"
	"github.com/ewagner-dev/nestup/pkg/vcs"
)

type fakeVCS struct {
	mu        sync.Mutex
	statuses  map[string]types.RepoStatus
	statusErr map[string]error
	updateErr map[string]error
	remotes   map[string]string
	commits   map[string]time.Time
	updates   []string
	fetches   []string
}

func (f *fakeVCS) Status(_ context.Context, path string) (types.RepoStatus, error) {
	if err := f.statusErr[path]; err != nil {
		return types.RepoStatus{}, err
	}
	if st, ok := f.statuses[path]; ok {
		return st, nil
	}
	return types.RepoStatus{State: types.RepoStateClean}, nil
}

func (f *fakeVCS) Fetch(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, path)
	return nil
}

func (f *fakeVCS) Update(_ context.Context, path string) error {
	if err := f.updateErr[path]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, path)
	return nil
}

func (f *fakeVCS) RemoteURL(_ context.Context, path string) (string, error) {
	return f.remotes[path], nil
}

func (f *fakeVCS) LastCommit(_ context.Context, path string) (time.Time, error) {
	if ts, ok := f.commits[path]; ok {
		return ts, nil
	}
	return time.Time{}, errors.New(errors.ErrRepoUpdate, "no commits")
}

type fakeInstaller struct {
	mu        sync.Mutex
	calls     []installer.Call
	failSpecs map[string]bool
	err       error
}

func (f *fakeInstaller) Install(_ context.Context, envPath string, specs []string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, installer.Call{EnvPath: envPath, Specs: append([]string(nil), specs...)})
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var failed []string
	for _, spec := range specs {
		if f.failSpecs[spec] {
			failed = append(failed, spec)
		}
	}
	return failed, nil
}

func (f *fakeInstaller) Installed(_ context.Context, _ string) (map[string]string, error) {
	return map[string]string{}, nil
}

func testConfig() config.Config {
	return config.Config{
		RootPath: "/work",
		EnvPath:  "/envs/main",
		MaxDepth: 3,
		Ignore:   config.DefaultIgnore(),
		Timeout:  time.Minute,
	}
}

// fixtureFS builds the canonical tree: a main manifest pinning
// requests>=1.5, sub_a asking for >=2.0 on a clean checkout, sub_b pinning
// ==1.0.0 on a checkout that is behind its upstream.
func fixtureFS(t *testing.T) types.FS {
	t.Helper()
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/work/sub_a/.git", 0o755))
	require.NoError(t, fsys.MkdirAll("/work/sub_b/.git", 0o755))
	require.NoError(t, fsys.WriteFile("/work/requirements.txt", []byte("requests>=1.5\n"), 0o644))
	require.NoError(t, fsys.WriteFile("/work/sub_a/requirements.txt", []byte("requests>=2.0\n"), 0o644))
	require.NoError(t, fsys.WriteFile("/work/sub_b/requirements.txt", []byte("requests==1.0.0\n"), 0o644))
	return fsys
}

func TestRunEndToEnd(t *testing.T) {
	fsys := fixtureFS(t)
	git := &fakeVCS{
		statuses: map[string]types.RepoStatus{
			"/work/sub_b": {State: types.RepoStateBehind},
		},
		remotes: map[string]string{
			"/work/sub_a": "https://github.com/example/sub-a",
		},
	}
	pip := &fakeInstaller{}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	subA := results[0]
	assert.Equal(t, "sub_a", subA.Subproject)
	assert.Equal(t, types.RepoStateClean, subA.RepoState)
	assert.Equal(t, types.RepoSkipped, subA.RepoAction)
	assert.Equal(t, types.InstallPerformed, subA.Install)
	assert.Empty(t, subA.Conflicts)
	assert.Equal(t, "https://github.com/example/sub-a", subA.RemoteURL)
	assert.False(t, subA.Failed())

	subB := results[1]
	assert.Equal(t, "sub_b", subB.Subproject)
	assert.Equal(t, types.RepoUpdated, subB.RepoAction)
	assert.Equal(t, []string{"/work/sub_b"}, git.updates)
	require.Len(t, subB.Conflicts, 1)
	assert.Equal(t, "requests", subB.Conflicts[0].Package)
	assert.Equal(t, types.ResolutionMainWins, subB.Conflicts[0].Resolution)

	// sub_a narrows the shared constraint to >=2.0; the pin in sub_b loses
	// the conflict, so both installs carry the narrowed range.
	require.Len(t, pip.calls, 2)
	assert.Equal(t, []string{"requests>=2.0"}, pip.calls[0].Specs)
	assert.Equal(t, []string{"requests>=2.0"}, pip.calls[1].Specs)
	assert.Equal(t, "/envs/main", pip.calls[0].EnvPath)
}

func TestRunPreviewAndExecuteDecideIdentically(t *testing.T) {
	run := func(execute bool) ([]types.OperationResult, []vcs.Call, []installer.Call, *fakeVCS, *fakeInstaller) {
		fsys := fixtureFS(t)
		git := &fakeVCS{statuses: map[string]types.RepoStatus{
			"/work/sub_b": {State: types.RepoStateBehind},
		}}
		pip := &fakeInstaller{}
		gitRec := vcs.NewRecorder(git, execute)
		pipRec := installer.NewRecorder(pip, execute)

		eng := New(Options{Config: testConfig(), FS: fsys, VCS: gitRec, Installer: pipRec})
		results, err := eng.Run(context.Background())
		require.NoError(t, err)
		return results, gitRec.Calls(), pipRec.Calls(), git, pip
	}

	preview, prevGit, prevPip, fGit, fPip := run(false)
	execute, execGit, execPip, _, _ := run(true)

	// Identical decisions either way; only whether the backends were
	// actually invoked differs.
	assert.Equal(t, execute, preview)
	assert.Equal(t, execGit, prevGit)
	assert.Equal(t, execPip, prevPip)
	assert.Empty(t, fGit.updates)
	assert.Empty(t, fPip.calls)
}

func TestRunGitOnly(t *testing.T) {
	fsys := fixtureFS(t)
	cfg := testConfig()
	cfg.GitOnly = true
	pip := &fakeInstaller{}

	eng := New(Options{Config: cfg, FS: fsys, VCS: &fakeVCS{}, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, types.InstallSkipped, r.Install)
	}
	assert.Empty(t, pip.calls)
}

func TestRunDirtyCheckoutBlocksInstall(t *testing.T) {
	fsys := fixtureFS(t)
	git := &fakeVCS{statuses: map[string]types.RepoStatus{
		"/work/sub_a": {State: types.RepoStateDirty},
	}}
	pip := &fakeInstaller{}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	subA := results[0]
	assert.Equal(t, types.RepoFailed, subA.RepoAction)
	assert.Equal(t, types.InstallSkipped, subA.Install)
	assert.Equal(t, errors.ErrRepoConflict, subA.Error)
	assert.True(t, subA.Failed())

	// sub_a never contributed its >=2.0 request, so sub_b reconciles
	// against the original >=1.5 and loses to that instead.
	subB := results[1]
	require.Len(t, subB.Conflicts, 1)
	require.Len(t, pip.calls, 1)
	assert.Equal(t, []string{"requests>=1.5"}, pip.calls[0].Specs)
}

func TestRunDivergedCheckout(t *testing.T) {
	fsys := fixtureFS(t)
	git := &fakeVCS{statuses: map[string]types.RepoStatus{
		"/work/sub_b": {State: types.RepoStateDiverged},
	}}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: &fakeInstaller{}})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	subB := results[1]
	assert.Equal(t, types.RepoFailed, subB.RepoAction)
	assert.Equal(t, errors.ErrRepoConflict, subB.Error)
	assert.Empty(t, git.updates)
}

func TestRunAheadFetchesOnly(t *testing.T) {
	fsys := fixtureFS(t)
	git := &fakeVCS{statuses: map[string]types.RepoStatus{
		"/work/sub_a": {State: types.RepoStateAhead},
	}}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: &fakeInstaller{}})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RepoFetched, results[0].RepoAction)
	assert.Equal(t, []string{"/work/sub_a"}, git.fetches)
	assert.Empty(t, git.updates)
	assert.Equal(t, types.InstallPerformed, results[0].Install)
}

func TestRunUpdateFailure(t *testing.T) {
	fsys := fixtureFS(t)
	git := &fakeVCS{
		statuses: map[string]types.RepoStatus{
			"/work/sub_b": {State: types.RepoStateBehind},
		},
		updateErr: map[string]error{
			"/work/sub_b": errors.New(errors.ErrBackendTimeout, "git pull timed out"),
		},
	}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: &fakeInstaller{}})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	subB := results[1]
	assert.Equal(t, types.RepoFailed, subB.RepoAction)
	assert.Equal(t, errors.ErrBackendTimeout, subB.Error)
	assert.Equal(t, types.InstallSkipped, subB.Install)
}

func TestRunManifestParseFailure(t *testing.T) {
	fsys := fixtureFS(t)
	require.NoError(t, fsys.WriteFile("/work/sub_a/requirements.txt", []byte("requests >>= nope\n"), 0o644))
	pip := &fakeInstaller{}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: &fakeVCS{}, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	subA := results[0]
	assert.Equal(t, types.InstallSkipped, subA.Install)
	assert.Equal(t, errors.ErrManifestParse, subA.Error)
	assert.True(t, subA.Failed())

	// The other subproject still runs.
	assert.Equal(t, types.InstallPerformed, results[1].Install)
}

func TestRunInstallFailureAccumulates(t *testing.T) {
	fsys := fixtureFS(t)
	pip := &fakeInstaller{failSpecs: map[string]bool{"requests>=2.0": true}}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: &fakeVCS{}, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	subA := results[0]
	assert.Equal(t, types.InstallFailed, subA.Install)
	assert.Equal(t, errors.ErrInstall, subA.Error)
	assert.Equal(t, []string{"requests>=2.0"}, subA.FailedPackages)

	// A failed install does not undo the narrowing the reconciliation
	// decided on; sub_b still sees >=2.0.
	require.Len(t, results[1].Conflicts, 1)
}

func TestRunSubprojectOverrideWins(t *testing.T) {
	fsys := fixtureFS(t)
	require.NoError(t, fsys.WriteFile("/work/sub_b/.nestup.toml", []byte("allow-override = true\n"), 0o644))
	pip := &fakeInstaller{}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: &fakeVCS{}, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)

	subB := results[1]
	require.Len(t, subB.Conflicts, 1)
	assert.Equal(t, types.ResolutionSubWins, subB.Conflicts[0].Resolution)
	require.Len(t, pip.calls, 2)
	assert.Equal(t, []string{"requests==1.0.0"}, pip.calls[1].Specs)
}

func TestRunNoMainManifest(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/work/sub_a", 0o755))
	require.NoError(t, fsys.WriteFile("/work/sub_a/requirements.txt", []byte("flask>=2.0\n"), 0o644))
	pip := &fakeInstaller{}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: &fakeVCS{}, Installer: pip})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.InstallPerformed, results[0].Install)
	require.Len(t, pip.calls, 1)
	assert.Equal(t, []string{"flask>=2.0"}, pip.calls[0].Specs)
}

func TestRunNoRepositorySkipsRepoStep(t *testing.T) {
	fsys := filesystem.NewMemory()
	require.NoError(t, fsys.MkdirAll("/work/plain", 0o755))
	require.NoError(t, fsys.WriteFile("/work/plain/requirements.txt", []byte("flask\n"), 0o644))
	git := &fakeVCS{statusErr: map[string]error{
		"/work/plain": errors.New(errors.ErrInternal, "must not be called"),
	}}

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: git, Installer: &fakeInstaller{}})
	results, err := eng.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.RepoSkipped, results[0].RepoAction)
	assert.Equal(t, types.InstallPerformed, results[0].Install)
}

func TestRunCancellation(t *testing.T) {
	fsys := fixtureFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(Options{Config: testConfig(), FS: fsys, VCS: &fakeVCS{}, Installer: &fakeInstaller{}})
	results, err := eng.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunDiscoveryFailure(t *testing.T) {
	cfg := testConfig()
	cfg.RootPath = "/does/not/exist"

	eng := New(Options{Config: cfg, FS: filesystem.NewMemory(), VCS: &fakeVCS{}, Installer: &fakeInstaller{}})
	_, err := eng.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDiscovery))
}
