package stream

import (
	"context"
	"testing"
	"time"

	"github.com/loomrt/loom/internal/baselib/actor"
	"github.com/stretchr/testify/require"
)

// TestSourceIteratorToForEach is scenario S1: Source.iterator(1..=5) ->
// Sink.for_each(collect) yields [1,2,3,4,5], then stream completion.
func TestSourceIteratorToForEach(t *testing.T) {
	t.Parallel()

	var got []int
	sink := ForEach[int](func(v int) { got = append(got, v) })

	_, err := Run(context.Background(), To(FromRange(1, 5), sink)).Unpack()

	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

// TestFilterEvenNumbers is scenario S2: Source.iterator(1..=5) ->
// Flow.filter(even) -> Sink.to_vec() yields [2,4].
func TestFilterEvenNumbers(t *testing.T) {
	t.Parallel()

	src := Via(FromRange(1, 5), Filter(func(v int) bool { return v%2 == 0 }))

	result, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
	require.NoError(t, err)
	require.Equal(t, []int{2, 4}, result)
}

// TestTakeWhileUnderTen is scenario S3: Source.iterator(1..=100) ->
// Flow.take_while(x < 10) -> Sink.to_vec() yields [1..=9].
func TestTakeWhileUnderTen(t *testing.T) {
	t.Parallel()

	src := Via(FromRange(1, 100), TakeWhile(func(v int) bool { return v < 10 }))

	result, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, result)
}

// TestDetachedMapFirst is scenario S4: Source.iterator(1..=20) ->
// Flow.detached(K=2) -> Flow.map(x*2) -> Sink.first() yields Some(2).
func TestDetachedMapFirst(t *testing.T) {
	t.Parallel()

	sys := actor.NewActorSystem()
	defer sys.Shutdown(context.Background()) //nolint:errcheck

	detached := Detached(sys, FromRange(1, 20), 2)
	doubled := Via(detached, Map(func(v int) int { return v * 2 }))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := Run(ctx, To(doubled, First[int]())).Unpack()
	require.NoError(t, err)
	require.True(t, result.IsSome())
	require.Equal(t, 2, result.UnwrapOr(-1))
}

// TestForEachOnEmptySourceCompletesImmediately exercises a zero-element
// stream to check the completion path doesn't require at least one push.
func TestForEachOnEmptySourceCompletesImmediately(t *testing.T) {
	t.Parallel()

	var calls int
	_, err := Run(context.Background(), To(Empty[int](), ForEach[int](func(int) { calls++ }))).Unpack()

	require.NoError(t, err)
	require.Zero(t, calls)
}

// TestMapThenFilterComposesMultipleStages checks a three-stage chain: the
// composite fusion used by Via must nest correctly across more than one
// Flow.
func TestMapThenFilterComposesMultipleStages(t *testing.T) {
	t.Parallel()

	src := Via(
		Via(FromRange(1, 10), Map(func(v int) int { return v + 1 })),
		Filter(func(v int) bool { return v%2 == 0 }),
	)

	result, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
	require.NoError(t, err)
	require.Equal(t, []int{2, 4, 6, 8, 10}, result)
}
