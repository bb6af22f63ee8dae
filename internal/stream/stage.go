package stream

import "context"

// Stage is the contract every source, flow, and sink logic implements: a
// name for diagnostics, and a Receive method answering one Event with one
// Action. A stage's own mutable state (counters, closures, buffers) lives on
// the concrete type; the driver guarantees Receive is never called
// concurrently with itself for a given stage.
type Stage[In, Out any] interface {
	Name() string
	Receive(ctx context.Context, ev Event[In]) Action[Out]
}

// closer is implemented by stages that hold background resources (a
// Detached boundary's buffer actor and upstream pump goroutine) that must be
// torn down once a materialized stream finishes running, regardless of
// whether it completed, failed, or was cancelled.
type closer interface {
	Close()
}

func closeStage(s any) {
	if c, ok := s.(closer); ok {
		c.Close()
	}
}
