package actor

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// functionBehavior adapts a plain receive function to the ActorBehavior
// interface, for actors whose logic doesn't warrant a dedicated named type.
type functionBehavior[M Message, R any] struct {
	receive func(ctx context.Context, msg M) fn.Result[R]
}

// NewFunctionBehavior wraps receive as an ActorBehavior. This is the usual
// way to stand up small system actors (the dead letter office, test probes)
// without declaring a struct just to hold one method.
func NewFunctionBehavior[M Message, R any](
	receive func(ctx context.Context, msg M) fn.Result[R],
) ActorBehavior[M, R] {

	return &functionBehavior[M, R]{receive: receive}
}

// Receive delegates to the wrapped function.
func (f *functionBehavior[M, R]) Receive(ctx context.Context, msg M) fn.Result[R] {
	return f.receive(ctx, msg)
}
