package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestTimerScheduleOnceFires checks that a ScheduleOnce thunk runs after
// roughly the requested delay.
func TestTimerScheduleOnceFires(t *testing.T) {
	t.Parallel()

	system := NewActorSystem()
	defer system.Shutdown(context.Background()) //nolint:errcheck

	timerRef := StartTimer(system, 5*time.Millisecond)

	var fired atomic.Bool
	done := make(chan struct{})

	timerRef.Tell(context.Background(), ScheduleOnce{
		After: 20 * time.Millisecond,
		Thunk: func() {
			fired.Store(true)
			close(done)
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled thunk to fire")
	}

	require.True(t, fired.Load())
}

// TestTimerSchedulePeriodicFiresMultipleTimes checks that a periodic
// schedule keeps re-arming itself after each firing.
func TestTimerSchedulePeriodicFiresMultipleTimes(t *testing.T) {
	t.Parallel()

	system := NewActorSystem()
	defer system.Shutdown(context.Background()) //nolint:errcheck

	timerRef := StartTimer(system, 5*time.Millisecond)

	var count atomic.Int32
	done := make(chan struct{})

	timerRef.Tell(context.Background(), SchedulePeriodic{
		Period: 10 * time.Millisecond,
		Thunk: func() {
			if count.Add(1) == 3 {
				close(done)
			}
		},
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for periodic thunk to fire 3 times")
	}

	require.GreaterOrEqual(t, count.Load(), int32(3))
}
