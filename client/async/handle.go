package async

import (
	"context"

	"github.com/google/uuid"
)

// Handle represents one in-flight or completed unit of work.
type Handle[T any] struct {
	id     uuid.UUID
	done   chan struct{}
	result T
	cancel context.CancelFunc
}

// ID returns the identifier given to [Group.Start].
func (h *Handle[T]) ID() uuid.UUID { return h.id }

// Done returns a channel that is closed when the work returns.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Result blocks until the work returns and yields its value.
func (h *Handle[T]) Result() T {
	<-h.done
	return h.result
}

// Wait blocks until the work returns or ctx is done.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Finished reports, without blocking, whether the work has returned.
func (h *Handle[T]) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Cancel cancels the context handed to the work. Work that already
// returned is unaffected.
func (h *Handle[T]) Cancel() {
	h.cancel()
}

// Completed returns a Handle that is already done with result v. It
// stands in for work that was rejected before it could start.
func Completed[T any](id uuid.UUID, v T) *Handle[T] {
	done := make(chan struct{})
	close(done)

	return &Handle[T]{
		id:     id,
		done:   done,
		result: v,
		cancel: func() {},
	}
}
