// Package installer is the package-installer backend boundary. The engine
// decides what to install; implementations here only carry it out, and the
// Recorder gates the mutating call for preview mode.
package installer

import (
	"context"
	"sync"
)

// Backend installs packages into a named environment and reports what is
// already installed there.
type Backend interface {
	// Install installs the given package specs (such as "requests>=2.0")
	// into the environment. It returns the specs that failed; a non-nil
	// error means the environment itself was unusable.
	Install(ctx context.Context, envPath string, specs []string) ([]string, error)

	// Installed maps installed package names to their versions.
	Installed(ctx context.Context, envPath string) (map[string]string, error)
}

// Call is one recorded install invocation.
type Call struct {
	EnvPath string
	Specs   []string
}

// Recorder wraps a Backend, recording install calls and invoking the
// wrapped backend only when Execute is set.
type Recorder struct {
	backend Backend
	execute bool

	mu    sync.Mutex
	calls []Call
}

// NewRecorder wraps backend. With execute false, install calls are
// recorded but never invoked.
func NewRecorder(backend Backend, execute bool) *Recorder {
	return &Recorder{backend: backend, execute: execute}
}

// Calls returns the install calls recorded so far, in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) Install(ctx context.Context, envPath string, specs []string) ([]string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{EnvPath: envPath, Specs: append([]string(nil), specs...)})
	r.mu.Unlock()

	if !r.execute {
		return nil, nil
	}
	return r.backend.Install(ctx, envPath, specs)
}

func (r *Recorder) Installed(ctx context.Context, envPath string) (map[string]string, error) {
	return r.backend.Installed(ctx, envPath)
}
