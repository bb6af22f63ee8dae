package stream

import "context"

// mapStage transforms each pushed element with fn. Stateless beyond the
// closure itself.
type mapStage[A, B any] struct {
	fn func(A) B
}

func (s *mapStage[A, B]) Name() string { return "Map" }

func (s *mapStage[A, B]) Receive(_ context.Context, ev Event[A]) Action[B] {
	switch ev.Kind {
	case EventPushed:
		return Push(s.fn(ev.Value))
	case EventPulled:
		return Pull[B]()
	case EventCancelled:
		return Cancel[B]()
	case EventStopped:
		return Complete[B](nil)
	default:
		return None[B]()
	}
}

// Map builds a Flow applying fn to every element.
func Map[A, B any](fn func(A) B) Flow[A, B] {
	return Flow[A, B]{stage: &mapStage[A, B]{fn: fn}}
}

// filterStage passes through elements matching pred and re-requests on a
// miss. Grounded on original_source/src/stream/flow/filter.rs.
type filterStage[A any] struct {
	pred func(A) bool
}

func (s *filterStage[A]) Name() string { return "Filter" }

func (s *filterStage[A]) Receive(_ context.Context, ev Event[A]) Action[A] {
	switch ev.Kind {
	case EventPushed:
		if s.pred(ev.Value) {
			return Push(ev.Value)
		}
		return Pull[A]()
	case EventPulled:
		return Pull[A]()
	case EventCancelled:
		return Cancel[A]()
	case EventStopped:
		return Complete[A](nil)
	default:
		return None[A]()
	}
}

// Filter builds a Flow that only passes elements for which pred returns
// true.
func Filter[A any](pred func(A) bool) Flow[A, A] {
	return Flow[A, A]{stage: &filterStage[A]{pred: pred}}
}

// takeWhileStage passes elements through until pred first returns false, at
// which point it completes and cancels upstream. Supplements the
// distillation: grounded on
// original_source/src/stream/flow/take_while.rs, which the distilled
// spec.md dropped in favor of naming it only as scenario S3.
type takeWhileStage[A any] struct {
	pred func(A) bool
}

func (s *takeWhileStage[A]) Name() string { return "TakeWhile" }

func (s *takeWhileStage[A]) Receive(_ context.Context, ev Event[A]) Action[A] {
	switch ev.Kind {
	case EventPulled:
		return Pull[A]()
	case EventPushed:
		if s.pred(ev.Value) {
			return Push(ev.Value)
		}
		return Complete[A](nil)
	case EventStopped, EventCancelled:
		return Complete[A](nil)
	default:
		return None[A]()
	}
}

// TakeWhile builds a Flow that passes elements through while pred holds,
// then completes and cancels upstream on the first element that fails it.
func TakeWhile[A any](pred func(A) bool) Flow[A, A] {
	return Flow[A, A]{stage: &takeWhileStage[A]{pred: pred}}
}
