package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

// Executor is the callback context: it runs each submitted unit of work
// on the designated goroutine (a UI thread, an event loop, ...).
type Executor interface {
	Execute(fn func())
}

// ExecutorFunc adapts a scheduling function, such as a GUI toolkit's
// "run on main thread" hook, to an [Executor].
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) { f(fn) }

// ErrLoopStopped is returned by [Loop.Run] once [Loop.Stop] was called.
var ErrLoopStopped = errors.New("loop stopped")

// Loop is a single-goroutine [Executor]. Submitted work runs in FIFO
// order on the goroutine calling [Loop.Run], one unit at a time.
// Submissions never block.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once
	closed  bool
	logger  *slog.Logger
}

// NewLoop creates a Loop. Nothing runs until [Loop.Run] is called.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Execute queues fn. Work submitted after Stop is dropped.
func (l *Loop) Execute(fn func()) {
	if !l.tryExecute(fn) {
		l.logger.Warn("loop stopped, dropping callback")
	}
}

// tryExecute queues fn unless Stop was called. A queued fn is always run
// by Run, since Stop and the check share l.mu.
func (l *Loop) tryExecute(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return true
}

// Run processes queued work on the calling goroutine until ctx is done
// or Stop is called. Work still queued at Stop is run before returning.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			l.drain()
			return ErrLoopStopped
		case <-l.wake:
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.stopped)
		l.mu.Unlock()
	})
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)
	}
}

// run isolates the loop from a panicking callback.
func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	fn()
}

// dispatch delivers outcome to l on exec as a single unit of work:
// Done then Always(true), or Fail then Always(false). A panicking Done
// or Fail still gets Always(false) before the panic continues.
func dispatch(exec Executor, outcome Outcome, l Listener, logger *slog.Logger, attrs ...any) {
	if l == nil {
		l = nopListener
	}

	exec.Execute(func() {
		success := outcome.Success()
		logger.Debug("dispatching result", slices.Concat(attrs, []any{"success", success})...)

		defer func() {
			r := recover()
			if r != nil {
				success = false
			}
			l.Always(success)
			if r != nil {
				panic(r)
			}
		}()

		if success {
			l.Done(outcome.Body)
			return
		}
		l.Fail(outcome.Err)
	})
}
