// Package task runs detector functions off the interactive loop and hands
// exactly one terminal result per run back over a channel. Each runner
// covers one kind of work and allows a single in-flight task: starting a
// new task supersedes the previous one, whose result is discarded when it
// eventually arrives. Cancellation is cooperative via context.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/KongYongGun/epub-studio/internal/logger"
)

// State is the lifecycle state of the runner's most recent task.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of a task run: either a value or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// Runner runs at most one task of its kind at a time.
type Runner[T any] struct {
	kind    string
	results chan Result[T]

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewRunner creates a runner for the named kind of work.
func NewRunner[T any](kind string) *Runner[T] {
	return &Runner[T]{
		kind: kind,
		// One slot: at most one undelivered terminal result exists
		// per runner, so delivery never blocks the worker.
		results: make(chan Result[T], 1),
	}
}

// Kind returns the runner's work kind.
func (r *Runner[T]) Kind() string {
	return r.kind
}

// State returns the lifecycle state of the most recent task.
func (r *Runner[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Results is the delivery channel. The controller's event loop is the only
// consumer; results from superseded or cancelled runs never appear on it.
func (r *Runner[T]) Results() <-chan Result[T] {
	return r.results
}

// Start launches fn on its own goroutine. If a task is already running it
// is cancelled and its eventual result discarded. fn must honor ctx for
// cooperative cancellation; a hung fn is not forcibly interrupted.
func (r *Runner[T]) Start(ctx context.Context, fn func(context.Context) (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		logger.Get().Debug("superseding running task", map[string]interface{}{
			"kind": r.kind,
		})
		r.cancel()
		r.cancel = nil
	}
	// Drop a terminal result the consumer has not picked up yet; it
	// belongs to the superseded run.
	select {
	case <-r.results:
	default:
	}

	r.gen++
	gen := r.gen
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state = StateRunning

	go r.run(runCtx, gen, fn)
}

// Cancel stops the running task, if any, without starting a new one.
// A cancelled task delivers nothing.
func (r *Runner[T]) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.gen++
	select {
	case <-r.results:
	default:
	}
	r.state = StateCancelled
}

func (r *Runner[T]) run(ctx context.Context, gen uint64, fn func(context.Context) (T, error)) {
	var res Result[T]
	func() {
		defer func() {
			if p := recover(); p != nil {
				res.Err = fmt.Errorf("task %s panicked: %v", r.kind, p)
			}
		}()
		res.Value, res.Err = fn(ctx)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen {
		// Superseded or cancelled while running: discard on arrival.
		logger.Get().Debug("discarding stale task result", map[string]interface{}{
			"kind": r.kind,
		})
		return
	}

	r.cancel = nil
	if res.Err != nil {
		r.state = StateFailed
	} else {
		r.state = StateCompleted
	}
	r.results <- res
}
