package stream

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// forEachStage invokes fn for every pushed element and always asks for the
// next one.
type forEachStage[A any] struct {
	fn func(A)
}

func (s *forEachStage[A]) Name() string { return "ForEach" }

func (s *forEachStage[A]) Receive(_ context.Context, ev Event[A]) Action[Void] {
	switch ev.Kind {
	case EventPushed:
		s.fn(ev.Value)
		return Pull[Void]()
	case EventPulled:
		return Pull[Void]()
	case EventStopped:
		return Complete[Void](nil)
	default:
		return None[Void]()
	}
}

// ForEach builds a Sink that calls fn on every element and completes with
// no result once the stream finishes.
func ForEach[A any](fn func(A)) Sink[A, struct{}] {
	return Sink[A, struct{}]{
		stage:  &forEachStage[A]{fn: fn},
		result: func() struct{} { return struct{}{} },
	}
}

// toVecStage accumulates every pushed element into a slice.
type toVecStage[A any] struct {
	values []A
}

func (s *toVecStage[A]) Name() string { return "ToVec" }

func (s *toVecStage[A]) Receive(_ context.Context, ev Event[A]) Action[Void] {
	switch ev.Kind {
	case EventPushed:
		s.values = append(s.values, ev.Value)
		return Pull[Void]()
	case EventPulled:
		return Pull[Void]()
	case EventStopped:
		return Complete[Void](nil)
	default:
		return None[Void]()
	}
}

// ToVec builds a Sink that collects every element into a slice, in order.
func ToVec[A any]() Sink[A, []A] {
	s := &toVecStage[A]{}
	return Sink[A, []A]{
		stage:  s,
		result: func() []A { return s.values },
	}
}

// firstStage captures the first pushed element, then cancels upstream
// instead of pulling again.
type firstStage[A any] struct {
	value fn.Option[A]
}

func (s *firstStage[A]) Name() string { return "First" }

func (s *firstStage[A]) Receive(_ context.Context, ev Event[A]) Action[Void] {
	switch ev.Kind {
	case EventPushed:
		s.value = fn.Some(ev.Value)
		return Cancel[Void]()
	case EventPulled:
		return Pull[Void]()
	case EventStopped:
		return Complete[Void](nil)
	default:
		return None[Void]()
	}
}

// First builds a Sink that captures only the first element, cancelling
// upstream as soon as it arrives (S4: "cancels the source after at most
// K+1 elements").
func First[A any]() Sink[A, fn.Option[A]] {
	s := &firstStage[A]{}
	return Sink[A, fn.Option[A]]{
		stage:  s,
		result: func() fn.Option[A] { return s.value },
	}
}
