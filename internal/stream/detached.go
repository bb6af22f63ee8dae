package stream

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/loomrt/loom/internal/baselib/actor"
)

// detachedMsg is the sealed message set the buffer actor behind a Detached
// boundary understands. Unlike every other stage in this package, a
// Detached boundary cannot answer its Pulled event synchronously on the
// calling goroutine: the whole point of the boundary is that upstream and
// downstream make progress independently. So instead of returning an
// Action directly, a pull request carries a reply callback the buffer actor
// invokes once it can answer — possibly from a later message, once an
// upstream push arrives. This mirrors the continuation-passing style
// original_source/src/stream/flow/detached.rs uses (GenConsumer/GenProducer
// boxed trait objects handed across actor messages) adapted to a plain
// closure instead of a boxed trait object.
type detachedMsg[A any] interface {
	actor.Message
	detachedMarker()
}

type baseDetachedMsg struct{ actor.BaseMessage }

func (baseDetachedMsg) detachedMarker() {}

type dStart[A any] struct{ baseDetachedMsg }

func (dStart[A]) MessageType() string { return "stream.detached.start" }

type dPush[A any] struct {
	baseDetachedMsg
	Value A
}

func (dPush[A]) MessageType() string { return "stream.detached.push" }

type dUpstreamDone[A any] struct {
	baseDetachedMsg
	Err error
}

func (dUpstreamDone[A]) MessageType() string { return "stream.detached.upstream_done" }

type dPull[A any] struct {
	baseDetachedMsg
	Reply func(Action[A])
}

func (dPull[A]) MessageType() string { return "stream.detached.pull" }

type dCancel[A any] struct{ baseDetachedMsg }

func (dCancel[A]) MessageType() string { return "stream.detached.cancel" }

// bufferActor is the Detached boundary's state machine: a bounded queue Q
// (buffer, bounded by capacity), pending downstream demand (pendingPulls),
// and the upstreamDone/cancelled flags. Grounded on spec.md §4.8's Detached
// boundary description; requestMore is called once per outstanding "may
// ask upstream for one more" slot, decoupled from the actual upstream pump
// goroutine via a channel so this Receive method never blocks.
type bufferActor[A any] struct {
	capacity    int
	requestMore func()

	buffer        []A
	pendingPulls  []func(Action[A])
	upstreamDone  bool
	upstreamErr   error
	cancelled     bool
}

func newBufferActor[A any](capacity int, requestMore func()) *bufferActor[A] {
	return &bufferActor[A]{capacity: capacity, requestMore: requestMore}
}

func (b *bufferActor[A]) Receive(_ context.Context, msg detachedMsg[A]) fn.Result[any] {
	switch m := msg.(type) {
	case dStart[A]:
		for i := 0; i < b.capacity; i++ {
			b.requestMore()
		}

	case dPush[A]:
		b.buffer = append(b.buffer, m.Value)
		if len(b.buffer) < b.capacity && !b.upstreamDone {
			b.requestMore()
		}
		b.drain()

	case dUpstreamDone[A]:
		b.upstreamDone = true
		b.upstreamErr = m.Err
		b.drain()

	case dPull[A]:
		if b.cancelled {
			m.Reply(Cancel[A]())
			break
		}
		b.pendingPulls = append(b.pendingPulls, m.Reply)
		b.drain()

	case dCancel[A]:
		b.cancelled = true
		b.buffer = nil
		for _, reply := range b.pendingPulls {
			reply(Cancel[A]())
		}
		b.pendingPulls = nil
	}

	return fn.Ok[any](nil)
}

// drain satisfies as many pending pulls as the current buffer allows, and
// re-arms upstream demand whenever a pop drops the buffer below capacity.
func (b *bufferActor[A]) drain() {
	for len(b.pendingPulls) > 0 {
		if len(b.buffer) > 0 {
			v := b.buffer[0]
			b.buffer = b.buffer[1:]

			reply := b.pendingPulls[0]
			b.pendingPulls = b.pendingPulls[1:]
			reply(Push(v))

			if len(b.buffer) < b.capacity && !b.upstreamDone {
				b.requestMore()
			}
			continue
		}

		if b.upstreamDone {
			reply := b.pendingPulls[0]
			b.pendingPulls = b.pendingPulls[1:]
			reply(Complete[A](b.upstreamErr))
			continue
		}

		break
	}
}

// detachedStage is the Stage[Void, A] leaf the rest of the pipeline
// composes with like any other Source — its true upstream (everything
// before the Detached boundary) is driven independently by pumpUpstream,
// not by whoever composes with this stage. Every event it receives is
// translated into a Tell against the buffer actor; Pulled is the one case
// that must wait for a reply, since the whole point of Detached is that the
// answer may not be ready yet.
type detachedStage[A any] struct {
	name    string
	ref     actor.TellOnlyRef[detachedMsg[A]]
	rawStop func()
	cancel  context.CancelFunc
}

func (s *detachedStage[A]) Name() string { return s.name }

func (s *detachedStage[A]) Receive(ctx context.Context, ev Event[Void]) Action[A] {
	switch ev.Kind {
	case EventStarted:
		s.ref.Tell(ctx, dStart[A]{})
		return None[A]()

	case EventPulled:
		replyCh := make(chan Action[A], 1)
		s.ref.Tell(ctx, dPull[A]{Reply: func(a Action[A]) { replyCh <- a }})

		select {
		case a := <-replyCh:
			return a
		case <-ctx.Done():
			return Complete[A](ctx.Err())
		}

	case EventCancelled:
		s.ref.Tell(ctx, dCancel[A]{})
		return Cancel[A]()

	default:
		return None[A]()
	}
}

// Close tears down the upstream pump goroutine and the buffer actor. Safe
// to call more than once.
func (s *detachedStage[A]) Close() {
	s.cancel()
	s.rawStop()
}

// pumpUpstream owns up (everything before the Detached boundary) and drives
// it independently of the synchronous downstream trampoline: each time the
// buffer actor signals it wants one more element (via reqCh), pumpUpstream
// asks up for one and forwards the result. This is the concurrency Detached
// actually buys: up can keep producing while downstream is still consuming
// a previously buffered batch.
func pumpUpstream[A any](ctx context.Context, up Stage[Void, A], reqCh <-chan struct{}, ref actor.TellOnlyRef[detachedMsg[A]]) {
	up.Receive(ctx, Started[Void]())

	for {
		select {
		case <-ctx.Done():
			up.Receive(context.Background(), Cancelled[Void]())
			return

		case <-reqCh:
			act := up.Receive(ctx, Pulled[Void]())

			switch act.Kind {
			case ActionPush:
				ref.Tell(ctx, dPush[A]{Value: act.Value})
			case ActionComplete:
				ref.Tell(ctx, dUpstreamDone[A]{Err: act.Err})
				return
			default:
				ref.Tell(ctx, dUpstreamDone[A]{})
				return
			}
		}
	}
}

// Detached inserts an actor-hosted buffering boundary between upstream and
// downstream so each can make progress independently, up to bufferSize
// elements ahead of demand (spec.md §4.8, default K recommended 16). sys
// supplies the dead-letter office the buffer actor reports to; the actor
// itself gets its own dedicated single-cell shard, the same treatment any
// actor without an explicit Shard receives.
func Detached[A any](sys *actor.ActorSystem, src Source[A], bufferSize int) Source[A] {
	if bufferSize <= 0 {
		bufferSize = 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	reqCh := make(chan struct{}, bufferSize)

	requestMore := func() {
		select {
		case reqCh <- struct{}{}:
		default:
		}
	}

	behavior := newBufferActor[A](bufferSize, requestMore)

	cfg := actor.ActorConfig[detachedMsg[A], any]{
		ID:       fmt.Sprintf("stream-detached-%s", uuid.NewString()),
		Behavior: behavior,
		DLO:      sys.DeadLetters(),
	}
	rawActor := actor.NewActor(cfg)
	rawActor.Start()

	go pumpUpstream[A](ctx, src.stage, reqCh, rawActor.Ref())

	return Source[A]{stage: &detachedStage[A]{
		name:    "Detached",
		ref:     rawActor.Ref(),
		rawStop: rawActor.Stop,
		cancel:  cancel,
	}}
}
