package stream

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Source is the head of a stream: it has no upstream of its own, only an
// output type A.
type Source[A any] struct {
	stage Stage[Void, A]
}

// Flow is a middle stage: input type A, output type B.
type Flow[A, B any] struct {
	stage Stage[A, B]
}

// Sink is the tail of a stream: it has no downstream of its own, only an
// input type A, and produces a materialized Result once the stream
// completes.
type Sink[A, Result any] struct {
	stage  Stage[A, Void]
	result func() Result
}

// Via attaches flow downstream of src, yielding a new Source whose element
// type is flow's output type.
func Via[A, B any](src Source[A], flow Flow[A, B]) Source[B] {
	return Source[B]{stage: composeStage[Void, A, B](src.stage, flow.stage)}
}

// Runnable is a fully wired Source -> ... -> Sink pipeline, ready to run.
type Runnable[Result any] struct {
	driver Stage[Void, Void]
	result func() Result
}

// To closes src with sink, yielding a Runnable that can be materialized with
// Run.
func To[A, Result any](src Source[A], sink Sink[A, Result]) Runnable[Result] {
	return Runnable[Result]{
		driver: composeStage[Void, A, Void](src.stage, sink.stage),
		result: sink.result,
	}
}

// Run materializes the pipeline: it sends Started once, then repeatedly
// asks for the next element until the pipeline signals completion,
// cancellation, or failure. Each non-Detached stage runs synchronously on
// the calling goroutine, one "island" per the composition's Detached
// boundaries (if any), consistent with spec.md's trampoline execution
// model.
func Run[Result any](ctx context.Context, r Runnable[Result]) fn.Result[Result] {
	defer closeStage(r.driver)

	r.driver.Receive(ctx, Started[Void]())

	for {
		if ctx.Err() != nil {
			return fn.Err[Result](ctx.Err())
		}

		act := r.driver.Receive(ctx, Pulled[Void]())

		switch act.Kind {
		case ActionPush:
			continue
		case ActionComplete:
			if act.Err != nil {
				return fn.Err[Result](act.Err)
			}
			return fn.Ok(r.result())
		case ActionCancel:
			return fn.Ok(r.result())
		default:
			return fn.Ok(r.result())
		}
	}
}
