package actor

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// WatcherMessage is the sealed set of messages ActorWatcher understands.
type WatcherMessage interface {
	Message

	watcherMarker()
}

type baseWatcherMessage struct{ BaseMessage }

func (baseWatcherMessage) watcherMarker() {}

// RegisterActor tells the watcher to track target as a live, non-system
// actor: the watcher registers itself (remapped through actorTerminated) as
// a watcher of target, and counts it against DrainSystem/StopSystem
// completion.
type RegisterActor struct {
	baseWatcherMessage

	ActorID string
	Target  Watchable
}

// MessageType identifies this message for routing/logging.
func (RegisterActor) MessageType() string { return "watcher.RegisterActor" }

// ReceivedPosixSignal notifies the watcher that the process received a
// POSIX signal, for bookkeeping; the decision to turn a shutdown signal into
// a Drain is made by ActiveActorSystem.Join, not here.
type ReceivedPosixSignal struct {
	baseWatcherMessage

	Signal int
}

// MessageType identifies this message for routing/logging.
func (ReceivedPosixSignal) MessageType() string { return "watcher.ReceivedPosixSignal" }

// DrainSystem asks the watcher to invoke Done once every currently tracked
// actor has stopped on its own (none of them are forced to stop).
type DrainSystem struct {
	baseWatcherMessage

	Done func()
}

// MessageType identifies this message for routing/logging.
func (DrainSystem) MessageType() string { return "watcher.DrainSystem" }

// StopSystem asks the watcher to Stop() every currently tracked actor and
// invoke Done once they have all terminated.
type StopSystem struct {
	baseWatcherMessage

	Done func()
}

// MessageType identifies this message for routing/logging.
func (StopSystem) MessageType() string { return "watcher.StopSystem" }

// actorTerminated is the internal message the watcher feeds itself, via a
// MapInputRef wrapping its own ref, whenever a tracked actor's Terminated
// signal fires.
type actorTerminated struct {
	baseWatcherMessage

	ActorID string
}

// MessageType identifies this message for routing/logging.
func (actorTerminated) MessageType() string { return "watcher.actorTerminated" }

// ActorWatcher is the system actor that owns the live-actor bookkeeping
// ActorSystem.Shutdown used to do inline: a set of actor IDs still running,
// and a pending drain/stop request waiting for that set to empty out.
type ActorWatcher struct {
	live map[string]Watchable

	// pendingDone, if set, is invoked once live becomes empty. stopping
	// distinguishes a StopSystem request (which must also Stop every
	// live actor) from a DrainSystem request (which only waits).
	pendingDone func()
	stopping    bool

	selfRef TellOnlyRef[WatcherMessage]
}

// NewActorWatcher creates a fresh watcher with no actors registered yet.
// SetSelfRef must be called once the actor's own ref is available, before
// any RegisterActor message is processed.
func NewActorWatcher() *ActorWatcher {
	return &ActorWatcher{live: make(map[string]Watchable)}
}

// SetSelfRef supplies the watcher's own ref, used to build the
// Terminated-to-actorTerminated mapping passed to Watch. Must be called
// exactly once, before the actor starts processing messages.
func (w *ActorWatcher) SetSelfRef(ref TellOnlyRef[WatcherMessage]) {
	w.selfRef = ref
}

// Receive implements ActorBehavior[WatcherMessage, any]. The watcher cell
// runs on the system shard, which runs one cell batch at a time, so every
// call here is strictly serialized and the
// map mutations below need no additional locking.
func (w *ActorWatcher) Receive(ctx context.Context, msg WatcherMessage) fn.Result[any] {
	switch m := msg.(type) {
	case RegisterActor:
		w.live[m.ActorID] = m.Target
		Watch(m.Target, NewMapInputRef[Terminated, WatcherMessage](
			w.selfRef,
			func(t Terminated) WatcherMessage {
				return actorTerminated{ActorID: t.ActorID}
			},
		))

	case actorTerminated:
		delete(w.live, m.ActorID)
		w.checkDone()

	case DrainSystem:
		w.pendingDone = m.Done
		w.stopping = false
		w.checkDone()

	case StopSystem:
		w.pendingDone = m.Done
		w.stopping = true
		for _, target := range w.live {
			if stoppableTarget, ok := target.(stoppable); ok {
				stoppableTarget.Stop()
			}
		}
		w.checkDone()

	case ReceivedPosixSignal:
		log.InfoS(ctx, "watcher observed posix signal", "signal", m.Signal)
	}

	return fn.Ok[any](nil)
}

// checkDone fires and clears pendingDone once live is empty. Called after
// every registration change and every drain/stop request, since a request
// that arrives when live is already empty must complete immediately.
func (w *ActorWatcher) checkDone() {
	if w.pendingDone == nil || len(w.live) > 0 {
		return
	}

	done := w.pendingDone
	w.pendingDone = nil
	done()
}

// StartWatcher spawns the ActorWatcher system actor on sys's system shard
// and returns a ref for tracking/draining/stopping non-system actors.
func StartWatcher(sys *ActorSystem) ActorRef[WatcherMessage, any] {
	behavior := NewActorWatcher()

	cfg := ActorConfig[WatcherMessage, any]{
		ID:       "system-watcher",
		Behavior: behavior,
		DLO:      sys.DeadLetters(),
		Shard:    sys.systemShard,
		Wg:       &sys.actorWg,
	}
	rawActor := NewActor(cfg)
	behavior.SetSelfRef(rawActor.Ref())
	rawActor.Start()

	sys.mu.Lock()
	sys.actors[rawActor.id] = rawActor
	sys.mu.Unlock()

	return rawActor.Ref()
}
