package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// recordingParent is a minimal supervisable that records every ChildStopped
// notification it receives, standing in for a real *Actor parent in a test
// that only cares about the notification, not escalation.
type recordingParent struct {
	stopped chan string
}

func (p *recordingParent) Supervise(err error) FailureAction { return FailureStop }

func (p *recordingParent) childStopped(id string) {
	p.stopped <- id
}

// selfStoppingBehavior stops its own actor the moment it sees Started,
// before ever touching its mailbox, and records whether Receive was ever
// called.
type selfStoppingBehavior struct {
	self        *Actor[*testMsg, string]
	receivedMsg atomic.Bool
}

func (b *selfStoppingBehavior) Receive(
	_ context.Context, _ *testMsg,
) fn.Result[string] {

	b.receivedMsg.Store(true)
	return fn.Ok("unreachable")
}

func (b *selfStoppingBehavior) ReceiveSignal(_ context.Context, sig Signal) {
	if _, ok := sig.(Started); ok {
		b.self.Stop()
	}
}

// TestChildStoppedNotifiesParent covers S5: an actor that stops itself in
// Started never reaches its own Receive, and its parent is told exactly
// which child stopped via a ChildStopped signal.
func TestChildStoppedNotifiesParent(t *testing.T) {
	t.Parallel()

	parent := &recordingParent{stopped: make(chan string, 1)}
	behavior := &selfStoppingBehavior{}

	child := NewActor(ActorConfig[*testMsg, string]{
		ID:       "child-a",
		Behavior: behavior,
		Parent:   parent,
	})
	behavior.self = child
	defer child.Stop()

	child.Start()

	select {
	case id := <-parent.stopped:
		require.Equal(t, "child-a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ChildStopped notification")
	}

	require.False(t, behavior.receivedMsg.Load())
}
