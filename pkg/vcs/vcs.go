// Package vcs is the version-control backend boundary. The engine only ever
// sees the Backend interface; the git implementation shells out, and the
// Recorder wrapper gates mutating calls so preview and execute runs share
// one decision path.
package vcs

import (
	"context"
	"sync"
	"time"

	"github.com/ewagner-dev/nestup/pkg/types"
)

// Backend exposes the version-control operations the engine needs. The
// engine never inspects repository internals beyond this surface.
type Backend interface {
	// Status classifies the checkout at path relative to its upstream.
	Status(ctx context.Context, path string) (types.RepoStatus, error)

	// Fetch downloads upstream refs without touching the worktree.
	Fetch(ctx context.Context, path string) error

	// Update fast-forwards the worktree to its upstream.
	Update(ctx context.Context, path string) error

	// RemoteURL reports the origin remote, or "" when there is none.
	RemoteURL(ctx context.Context, path string) (string, error)

	// LastCommit reports the most recent commit timestamp.
	LastCommit(ctx context.Context, path string) (time.Time, error)
}

// Op names a recorded backend call.
type Op string

const (
	OpFetch  Op = "fetch"
	OpUpdate Op = "update"
)

// Call is one recorded mutating backend invocation.
type Call struct {
	Op   Op
	Path string
}

// Recorder wraps a Backend, recording every mutating call and invoking the
// wrapped backend only when Execute is set. Read-only calls always pass
// through. This is the single point where preview mode diverges from
// execute mode.
type Recorder struct {
	backend Backend
	execute bool

	mu    sync.Mutex
	calls []Call
}

// NewRecorder wraps backend. With execute false, mutating calls are
// recorded but never invoked.
func NewRecorder(backend Backend, execute bool) *Recorder {
	return &Recorder{backend: backend, execute: execute}
}

// Calls returns the mutating calls recorded so far, in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Recorder) record(op Op, path string) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Path: path})
	r.mu.Unlock()
}

func (r *Recorder) Status(ctx context.Context, path string) (types.RepoStatus, error) {
	return r.backend.Status(ctx, path)
}

func (r *Recorder) Fetch(ctx context.Context, path string) error {
	r.record(OpFetch, path)
	if !r.execute {
		return nil
	}
	return r.backend.Fetch(ctx, path)
}

func (r *Recorder) Update(ctx context.Context, path string) error {
	r.record(OpUpdate, path)
	if !r.execute {
		return nil
	}
	return r.backend.Update(ctx, path)
}

func (r *Recorder) RemoteURL(ctx context.Context, path string) (string, error) {
	return r.backend.RemoteURL(ctx, path)
}

func (r *Recorder) LastCommit(ctx context.Context, path string) (time.Time, error) {
	return r.backend.LastCommit(ctx, path)
}
