package stream

import "context"

// iteratorStage is the Source leaf logic: on Pulled, it yields the next
// element of a slice or signals completion once exhausted. Grounded on
// original_source/src/stream/source/iterator.rs's Logic<(), A> impl.
type iteratorStage[A any] struct {
	items []A
	pos   int
}

func (s *iteratorStage[A]) Name() string { return "Iterator" }

func (s *iteratorStage[A]) Receive(_ context.Context, ev Event[Void]) Action[A] {
	switch ev.Kind {
	case EventPulled:
		if s.pos >= len(s.items) {
			return Complete[A](nil)
		}
		v := s.items[s.pos]
		s.pos++
		return Push(v)

	case EventCancelled:
		return Complete[A](nil)

	default:
		return None[A]()
	}
}

// FromSlice builds a Source that emits each element of items in order, then
// completes.
func FromSlice[A any](items []A) Source[A] {
	cp := make([]A, len(items))
	copy(cp, items)
	return Source[A]{stage: &iteratorStage[A]{items: cp}}
}

// FromRange builds a Source emitting the integers [start, end] inclusive,
// mirroring the draft's Source::iterator(1..=n) scenarios.
func FromRange(start, end int) Source[int] {
	items := make([]int, 0, max(0, end-start+1))
	for i := start; i <= end; i++ {
		items = append(items, i)
	}
	return FromSlice(items)
}

// Single builds a Source emitting exactly one element.
func Single[A any](v A) Source[A] {
	return FromSlice([]A{v})
}

// Empty builds a Source that completes immediately without emitting.
func Empty[A any]() Source[A] {
	return FromSlice[A](nil)
}
