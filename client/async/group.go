package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrGroupShutdown is returned by [Group.Start] once [Group.Shutdown] was called.
var ErrGroupShutdown = errors.New("group shut down")

// WorkFunc is the signature for async work producing a T.
type WorkFunc[T any] func(ctx context.Context) T

// Group tracks in-flight work. Its zero value is not usable; see [NewGroup].
type Group[T any] struct {
	wg       sync.WaitGroup
	inFlight atomic.Int64

	mu       sync.Mutex // orders Start's wg.Add against Shutdown
	shutdown bool
}

// NewGroup creates an empty Group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{}
}

// Start launches fn in a new goroutine managed by the group and returns
// a Handle identified by id for tracking it. ctx is handed to fn, wrapped
// so that [Handle.Cancel] can cancel it.
func (g *Group[T]) Start(ctx context.Context, id uuid.UUID, fn WorkFunc[T]) (*Handle[T], error) {
	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		return nil, ErrGroupShutdown
	}
	g.wg.Add(1)
	g.inFlight.Add(1)
	g.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle[T]{
		id:     id,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer func() {
			cancel()
			close(h.done)
			g.inFlight.Add(-1)
			g.wg.Done()
		}()

		h.result = fn(ctx)
	}()

	return h, nil
}

// InFlight reports how many units of work are still running.
func (g *Group[T]) InFlight() int {
	return int(g.inFlight.Load())
}

// Shutdown prevents new work from starting. Running work is unaffected.
// Work accepted before Shutdown returns is always covered by [Group.Wait].
func (g *Group[T]) Shutdown() {
	g.mu.Lock()
	g.shutdown = true
	g.mu.Unlock()
}

// Wait blocks until all started work returns or ctx is done.
func (g *Group[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
