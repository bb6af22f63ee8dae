package stream

import (
	"context"
	"testing"

	"pgregory.net/rapid"
)

// TestFilterPropertyPreservesOrderAndPredicate is spec.md's property 5
// (demand conservation) specialized to Filter: every element ToVec sees
// passed pred, in the same relative order it appeared upstream, and no
// element failing pred ever reaches downstream.
func TestFilterPropertyPreservesOrderAndPredicate(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.IntRange(-50, 50)).Draw(t, "items")
		threshold := rapid.IntRange(-50, 50).Draw(t, "threshold")
		pred := func(v int) bool { return v >= threshold }

		var want []int
		for _, v := range items {
			if pred(v) {
				want = append(want, v)
			}
		}

		src := Via(FromSlice(items), Filter(pred))
		got, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}

		if len(got) != len(want) {
			t.Fatalf("got %d elements, want %d (got=%v want=%v)", len(got), len(want), got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("element %d: got %d, want %d", i, got[i], want[i])
			}
		}
	})
}

// TestTakeWhilePropertyStopsAtFirstFailure is spec.md's scenario S3
// generalized: TakeWhile never emits an element past the first one failing
// pred, and every element it does emit satisfies pred.
func TestTakeWhilePropertyStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.IntRange(0, 20)).Draw(t, "items")
		cutoff := rapid.IntRange(0, 20).Draw(t, "cutoff")
		pred := func(v int) bool { return v < cutoff }

		var want []int
		for _, v := range items {
			if !pred(v) {
				break
			}
			want = append(want, v)
		}

		src := Via(FromSlice(items), TakeWhile(pred))
		got, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}

		if len(got) != len(want) {
			t.Fatalf("got %d elements, want %d (got=%v want=%v)", len(got), len(want), got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("element %d: got %d, want %d", i, got[i], want[i])
			}
		}
	})
}

// TestMapPropertyAppliesToEveryElementInOrder checks Map never reorders,
// drops, or duplicates an element — it is a pure per-element transform.
func TestMapPropertyAppliesToEveryElementInOrder(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOf(rapid.IntRange(-1000, 1000)).Draw(t, "items")
		fn := func(v int) int { return v * 2 }

		src := Via(FromSlice(items), Map(fn))
		got, err := Run(context.Background(), To(src, ToVec[int]())).Unpack()
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}

		if len(got) != len(items) {
			t.Fatalf("got %d elements, want %d", len(got), len(items))
		}
		for i, v := range items {
			if got[i] != fn(v) {
				t.Fatalf("element %d: got %d, want %d", i, got[i], fn(v))
			}
		}
	})
}
