package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// future is the concrete Future implementation backing NewPromise. A result
// is delivered at most once; Await, ThenApply and OnComplete all observe the
// same completion via the done channel, closed exactly once.
type future[T any] struct {
	mu     sync.Mutex
	done   chan struct{}
	result fn.Result[T]
}

// Await blocks until the result is available or ctx is cancelled, whichever
// happens first.
func (f *future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()

		return f.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply returns a new Future that completes with transform applied to
// this future's result. If ctx is cancelled before this future completes,
// the returned future completes with the context's error instead.
func (f *future[T]) ThenApply(ctx context.Context, transform func(T) T) Future[T] {
	next := newFuture[T]()

	go func() {
		val, err := f.Await(ctx).Unpack()
		if err != nil {
			next.Complete(fn.Err[T](err))
			return
		}

		next.Complete(fn.Ok(transform(val)))
	}()

	return next
}

// OnComplete registers fn to run once the result is ready, or once ctx is
// cancelled if that happens first.
func (f *future[T]) OnComplete(ctx context.Context, apply func(fn.Result[T])) {
	go func() {
		apply(f.Await(ctx))
	}()
}

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

// promiseImpl is the concrete Promise implementation. It wraps a future and
// guarantees the future is completed exactly once.
type promiseImpl[T any] struct {
	fut        *future[T]
	completeMu sync.Mutex
	completed  bool
}

// NewPromise creates a new, uncompleted Promise/Future pair. The caller
// completes the promise with Complete; any consumer of Future() observes the
// same single completion.
func NewPromise[T any]() Promise[T] {
	return &promiseImpl[T]{fut: newFuture[T]()}
}

// Future returns the Future associated with this promise.
func (p *promiseImpl[T]) Future() Future[T] {
	return p.fut
}

// Complete sets the promise's result. Returns true if this call was the one
// that completed it, false if it had already been completed.
func (p *promiseImpl[T]) Complete(result fn.Result[T]) bool {
	p.completeMu.Lock()
	defer p.completeMu.Unlock()

	if p.completed {
		return false
	}
	p.completed = true

	p.fut.mu.Lock()
	p.fut.result = result
	p.fut.mu.Unlock()

	close(p.fut.done)

	return true
}
