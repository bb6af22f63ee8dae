package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWheelFiresAfterConfiguredTicks(t *testing.T) {
	w := New(10*time.Millisecond, 8)

	fired := false
	w.Schedule(30*time.Millisecond, func() { fired = true })

	for i := 0; i < 2; i++ {
		due := w.Advance()
		require.Empty(t, due)
	}

	due := w.Advance()
	require.Len(t, due, 1)
	due[0]()
	require.True(t, fired)
}

func TestWheelHandlesMultipleRevolutions(t *testing.T) {
	w := New(1*time.Millisecond, 4)

	count := 0
	w.Schedule(10*time.Millisecond, func() { count++ })

	for i := 0; i < 9; i++ {
		require.Empty(t, w.Advance())
	}

	due := w.Advance()
	require.Len(t, due, 1)
	due[0]()
	require.Equal(t, 1, count)
}

func TestWheelPeriodicRearms(t *testing.T) {
	w := New(1*time.Millisecond, 4)

	fires := 0
	w.SchedulePeriodic(2*time.Millisecond, func() { fires++ })

	for tick := 0; tick < 9; tick++ {
		for _, thunk := range w.Advance() {
			thunk()
		}
	}

	require.Equal(t, 4, fires)
}

func TestWheelCancelPreventsFiring(t *testing.T) {
	w := New(1*time.Millisecond, 8)

	id := w.Schedule(3*time.Millisecond, func() {
		t.Fatal("cancelled thunk should not fire")
	})

	require.True(t, w.Cancel(id))
	require.False(t, w.Cancel(id), "cancelling twice reports not-found")

	for i := 0; i < 5; i++ {
		require.Empty(t, w.Advance())
	}
}
