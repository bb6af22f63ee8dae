package actor

import (
	"context"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestActiveSystemDrainCompletesWhenActorsStopThemselves verifies that
// Drain's Done callback fires only once every actor the watcher is
// tracking has terminated on its own.
func TestActiveSystemDrainCompletesWhenActorsStopThemselves(t *testing.T) {
	t.Parallel()

	active := StartSystem(SystemConfig{
		Shards:                       1,
		DefaultDispatcherParallelism: 2,
		TickerIntervalMS:             10,
		Throughput:                   5,
	})

	behavior := NewFunctionBehavior(
		func(ctx context.Context, msg *testMsg) fn.Result[string] {
			return fn.Ok("ok")
		},
	)

	key := NewServiceKey[*testMsg, string]("watched-actor")
	ref := RegisterWithSystem(active.System, "watched-actor", key, behavior)

	joinDone := make(chan struct{})
	go func() {
		active.Join()
		close(joinDone)
	}()

	// Give the watcher a moment to register the actor, then request a
	// drain and let the actor stop on its own.
	time.Sleep(20 * time.Millisecond)

	active.Drain()
	active.System.StopAndRemoveActor("watched-actor")

	select {
	case <-joinDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Join to return after Drain")
	}

	require.NotNil(t, ref)
}

// TestActiveSystemStopForcesActorsToTerminate verifies that Stop() causes
// Join to return even without any actor stopping on its own first.
func TestActiveSystemStopForcesActorsToTerminate(t *testing.T) {
	t.Parallel()

	active := StartSystem(SystemConfig{
		Shards:                       1,
		DefaultDispatcherParallelism: 2,
		TickerIntervalMS:             10,
		Throughput:                   5,
	})

	behavior := NewFunctionBehavior(
		func(ctx context.Context, msg *testMsg) fn.Result[string] {
			<-ctx.Done()
			return fn.Ok("ok")
		},
	)

	key := NewServiceKey[*testMsg, string]("blocking-actor")
	RegisterWithSystem(active.System, "blocking-actor", key, behavior)

	joinDone := make(chan struct{})
	go func() {
		active.Join()
		close(joinDone)
	}()

	time.Sleep(20 * time.Millisecond)
	active.Stop()

	select {
	case <-joinDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Join to return after Stop")
	}
}
