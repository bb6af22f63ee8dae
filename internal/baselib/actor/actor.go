package actor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/loomrt/loom/internal/baselib/dispatcher"
)

// mergeContexts creates a new context that cancels when either parent context
// cancels, enabling actors to respect both system shutdown and caller deadlines
// simultaneously. It preserves the shortest deadline between the two contexts
// to ensure the most restrictive timeout is honored.
//
// A background goroutine monitors both parent contexts and cancels the merged
// context when either parent cancels. The goroutine exits as soon as any
// cancellation is detected, preventing goroutine leaks. Callers must call the
// returned cancel function to release resources when the merged context is no
// longer needed.
func mergeContexts(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	deadline1, hasDeadline1 := ctx1.Deadline()
	deadline2, hasDeadline2 := ctx2.Deadline()

	baseCtx := ctx1
	if hasDeadline2 {
		if !hasDeadline1 || deadline2.Before(deadline1) {
			baseCtx = ctx2
		}
	}

	mergedCtx, cancel := context.WithCancel(baseCtx)

	go func() {
		select {
		case <-ctx1.Done():
			cancel()
		case <-ctx2.Done():
			cancel()
		case <-mergedCtx.Done():
		}
	}()

	return mergedCtx, cancel
}

// supervisable is implemented by any *Actor[M, R] regardless of its type
// parameters, letting a child cell escalate a failure to its parent without
// the parent's message/response types being visible at the escalation site.
type supervisable interface {
	Supervise(err error) FailureAction

	// childStopped delivers a ChildStopped signal to this parent's own
	// behavior, if it observes signals, once a child identified by id
	// has completed its stop sequence.
	childStopped(id string)
}

// ActorConfig holds the configuration parameters for creating a new Actor.
// It is generic over M (Message type) and R (Response type) to accommodate
// the actor's specific behavior.
type ActorConfig[M Message, R any] struct {
	// ID is the unique identifier for the actor.
	ID string

	// Behavior defines how the actor responds to messages.
	Behavior ActorBehavior[M, R]

	// DLO is a reference to the dead letter office for this actor system.
	DLO ActorRef[Message, any]

	// MailboxSize defines the buffer capacity of the actor's mailbox when
	// UseChannelMailbox is set. Ignored otherwise.
	MailboxSize int

	// UseChannelMailbox selects the bounded ChannelMailbox instead of the
	// default UnboundedMailbox. System actors that must apply backpressure
	// (rather than growing unboundedly under load) set this.
	UseChannelMailbox bool

	// Shard is the ActorShard this cell is scheduled on. If nil, NewActor
	// allocates a dedicated single-cell shard backed by its own
	// one-worker dispatcher, the same treatment given to an actor pinned
	// to a custom dispatcher.
	Shard *ActorShard

	// Parent, if set, receives escalated failures via Supervise.
	Parent supervisable

	// Wg is an optional WaitGroup for tracking actor lifecycle. If
	// non-nil, the actor calls Add(1) when Start is called and Done() once its
	// cell has fully terminated (mailbox drained, OnStop run).
	Wg *sync.WaitGroup

	// CleanupTimeout specifies the maximum duration for OnStop cleanup.
	// If None, a default of 5 seconds is used.
	CleanupTimeout fn.Option[time.Duration]
}

// envelope wraps a message with its associated promise and caller context. This
// allows the sender of an "ask" message to await a response. If the promise is
// nil, it signifies a "tell" operation (fire-and-forget). The callerCtx allows
// actors to respect request-scoped deadlines and cancellation.
type envelope[M Message, R any] struct {
	message   M
	promise   Promise[R]
	callerCtx context.Context
}

// Actor is a cell: the unit of user-behavior state the runtime schedules.
// It holds a behavior, a mailbox, and lifecycle bookkeeping, and is driven
// not by a dedicated goroutine but by whichever dispatcher worker its shard
// hands control to. All of a cell's state mutation happens inside runBatch,
// which a shard guarantees never runs concurrently with itself, giving the
// behavior the same single-threaded illusion a goroutine-per-actor model
// would, without the one-OS-thread-per-actor cost.
type Actor[M Message, R any] struct {
	watcherSet

	id string

	behavior ActorBehavior[M, R]
	mailbox  Mailbox[M, R]

	ctx    context.Context
	cancel context.CancelFunc

	dlo    ActorRef[Message, any]
	parent supervisable
	shard  *ActorShard

	wg             *sync.WaitGroup
	cleanupTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	finalized atomic.Bool

	ref ActorRef[M, R]
}

// NewActor creates a new actor cell and assigns it to cfg.Shard. The cell
// does not run until Start is called.
func NewActor[M Message, R any](cfg ActorConfig[M, R]) *Actor[M, R] {
	ctx, cancel := context.WithCancel(context.Background())

	var mailbox Mailbox[M, R]
	if cfg.UseChannelMailbox {
		capacity := cfg.MailboxSize
		if capacity <= 0 {
			capacity = 1
		}
		mailbox = NewChannelMailbox[M, R](ctx, capacity)
	} else {
		mailbox = NewUnboundedMailbox[M, R](ctx)
	}

	shard := cfg.Shard
	if shard == nil {
		// No shard was supplied, so this actor gets a freshly-allocated
		// single-cell shard bound to a dedicated one-worker dispatcher,
		// the same treatment spec'd for actors pinned to a custom
		// dispatcher. This keeps standalone actors (tests, one-offs)
		// working without requiring callers to stand up a system.
		shard = NewActorShard(0, dispatcher.New(dispatcher.Config{
			Parallelism: 1,
		}), 5)
	}

	actor := &Actor[M, R]{
		id:             cfg.ID,
		behavior:       cfg.Behavior,
		mailbox:        mailbox,
		ctx:            ctx,
		cancel:         cancel,
		dlo:            cfg.DLO,
		parent:         cfg.Parent,
		shard:          shard,
		wg:             cfg.Wg,
		cleanupTimeout: cfg.CleanupTimeout.UnwrapOr(5 * time.Second),
	}

	actor.ref = &actorRefImpl[M, R]{actor: actor}

	return actor
}

// Start registers the cell with its shard so the dispatcher begins driving
// it. Safe to call more than once; only the first call has any effect.
func (a *Actor[M, R]) Start() {
	a.startOnce.Do(func() {
		log.DebugS(a.ctx, "Starting actor", "actor_id", a.id)

		if a.wg != nil {
			a.wg.Add(1)
		}

		a.shard.addCell(a)
		// Ensure a worker visits at least once to deliver Started,
		// even if the mailbox never receives a message.
		a.shard.schedule()
	})
}

// lengther is implemented by mailboxes that can report their queue depth
// without consuming an envelope.
type lengther interface {
	Len() int
}

// hasPending reports whether the mailbox has queued envelopes, used by the
// shard's post-clear race check in runShard.
func (a *Actor[M, R]) hasPending() bool {
	l, ok := a.mailbox.(lengther)
	if !ok {
		return false
	}

	return l.Len() > 0
}

// runBatch drains up to throughput envelopes from the mailbox, invoking the
// behavior for each, and returns whether more envelopes are still queued.
// Once the cell has been stopped it runs finalize inline and returns false.
// This is the method ActorShard.runShard calls; it never runs concurrently
// with itself for a given cell.
func (a *Actor[M, R]) runBatch(throughput int) bool {
	if a.finalized.Load() {
		return false
	}

	if !a.started.Swap(true) {
		if sig, ok := a.behavior.(ReceiveSignal); ok {
			sig.ReceiveSignal(a.ctx, Started{})
		}
	}

	if a.ctx.Err() != nil {
		a.finalize()
		return false
	}

	processed := 0
	for processed < throughput {
		env, ok := a.mailbox.TryReceive()
		if !ok {
			break
		}

		a.dispatchEnvelope(env)
		processed++

		if a.ctx.Err() != nil {
			break
		}
	}

	if a.ctx.Err() != nil {
		a.finalize()
		return false
	}

	return a.hasPending()
}

// dispatchEnvelope invokes the behavior for one envelope, recovering from a
// panic and routing it through Supervise.
func (a *Actor[M, R]) dispatchEnvelope(env envelope[M, R]) {
	var processCtx context.Context
	var cancel context.CancelFunc
	if env.promise != nil {
		processCtx, cancel = mergeContexts(a.ctx, env.callerCtx)
	} else {
		processCtx = a.ctx
		cancel = func() {}
	}
	defer cancel()

	log.TraceS(processCtx, "Actor processing message",
		"actor_id", a.id,
		"msg_type", env.message.MessageType(),
		"is_ask", env.promise != nil)

	result, panicErr := a.receiveGuarded(processCtx, env.message)
	if panicErr != nil {
		action := a.supervise(panicErr)
		a.applyFailureAction(action, panicErr)

		if env.promise != nil {
			env.promise.Complete(fn.Err[R](panicErr))
		}

		return
	}

	if env.promise != nil {
		env.promise.Complete(result)
	}
}

// receiveGuarded calls the behavior's Receive, converting a panic into a
// UserError instead of letting it unwind the worker goroutine (which would
// take down every other shard's work with it).
func (a *Actor[M, R]) receiveGuarded(ctx context.Context, msg M) (result fn.Result[R], panicErr error) {
	defer func() {
		if r := recover(); r != nil {
			panicErr = &UserError{ActorID: a.id, Cause: fmt.Errorf("%v", r)}
		}
	}()

	result = a.behavior.Receive(ctx, msg)

	return result, nil
}

// supervise asks the behavior how to respond to a recovered failure,
// defaulting to FailureStop when it doesn't implement Supervisor.
func (a *Actor[M, R]) supervise(err error) FailureAction {
	if s, ok := a.behavior.(Supervisor); ok {
		return s.Supervise(err)
	}

	return FailureStop
}

// Supervise lets this cell act as a parent for escalation purposes,
// delegating to its own behavior's Supervisor implementation if any.
func (a *Actor[M, R]) Supervise(err error) FailureAction {
	return a.supervise(err)
}

// childStopped implements supervisable's parent-notification half: it
// delivers a ChildStopped signal to this cell's own behavior, if it observes
// signals, naming the child that just finished its stop sequence.
func (a *Actor[M, R]) childStopped(id string) {
	if sig, ok := a.behavior.(ReceiveSignal); ok {
		sig.ReceiveSignal(a.ctx, ChildStopped{ActorID: id})
	}
}

func (a *Actor[M, R]) applyFailureAction(action FailureAction, err error) {
	switch action {
	case FailureResume:
		log.WarnS(a.ctx, "Actor resuming after failure", err, "actor_id", a.id)

		if sig, ok := a.behavior.(ReceiveSignal); ok {
			sig.ReceiveSignal(a.ctx, Failed{Cause: err})
		}

	case FailureStop:
		log.WarnS(a.ctx, "Actor stopping after failure", err, "actor_id", a.id)
		a.Stop()

	case FailureEscalate:
		log.WarnS(a.ctx, "Actor escalating failure to parent", err, "actor_id", a.id)
		a.Stop()

		// The parent chain is exactly one hop deep: a parent that
		// itself returns FailureEscalate has no grandparent to pass
		// it to, so it is simply stopped here rather than walked
		// further up.
		if a.parent != nil {
			action := a.parent.Supervise(err)
			if action == FailureStop || action == FailureEscalate {
				if stoppableParent, ok := a.parent.(interface{ Stop() }); ok {
					stoppableParent.Stop()
				}
			}
		}
	}
}

// finalize closes the mailbox, drains anything left to the DLO, runs
// OnStop, notifies watchers, and releases the WaitGroup. It runs at most
// once per cell.
func (a *Actor[M, R]) finalize() {
	if !a.finalized.CompareAndSwap(false, true) {
		return
	}

	a.mailbox.Close()

	drainedCount := 0
	for env := range a.mailbox.Drain() {
		drainedCount++

		log.TraceS(a.ctx, "Draining message from terminated actor",
			"actor_id", a.id,
			"msg_type", env.message.MessageType(),
			"has_dlo", a.dlo != nil)

		if a.dlo != nil {
			a.dlo.Tell(context.Background(), env.message)
		}

		if env.promise != nil {
			env.promise.Complete(fn.Err[R](ErrActorTerminated))
		}
	}

	if stoppable, ok := a.behavior.(Stoppable); ok {
		cleanupCtx, cancel := context.WithTimeout(
			context.Background(), a.cleanupTimeout,
		)

		if err := stoppable.OnStop(cleanupCtx); err != nil {
			log.WarnS(a.ctx, "Actor cleanup error during shutdown",
				err, "actor_id", a.id)
		}

		cancel()
	}

	a.notifyAll(a.id)

	if a.parent != nil {
		a.parent.childStopped(a.id)
	}

	log.DebugS(a.ctx, "Actor terminated",
		"actor_id", a.id,
		"drained_messages", drainedCount)

	if a.wg != nil {
		a.wg.Done()
	}
}

// addWatcher implements Watchable.
func (a *Actor[M, R]) addWatcher(ref TellOnlyRef[Terminated]) {
	a.watcherSet.add(ref)
}

// Stop signals the actor to terminate. This cancels the cell's context and
// nudges its shard to schedule a visit, so finalization runs even if the
// mailbox never receives another message.
func (a *Actor[M, R]) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.shard.schedule()
	})
}

// actorRefImpl provides a concrete implementation of the ActorRef interface. It
// holds a reference to the target Actor instance, enabling message sending.
type actorRefImpl[M Message, R any] struct {
	actor *Actor[M, R]
}

// Tell sends a message without waiting for a response, then nudges the
// actor's shard to schedule a visit.
//
//nolint:lll
func (ref *actorRefImpl[M, R]) Tell(ctx context.Context, msg M) {
	log.TraceS(ctx, "Sending Tell message",
		"actor_id", ref.actor.id,
		"msg_type", msg.MessageType())

	env := envelope[M, R]{
		message:   msg,
		promise:   nil,
		callerCtx: ctx,
	}
	ok := ref.actor.mailbox.Send(ctx, env)

	if ok {
		ref.actor.shard.schedule()

		return
	}

	if ctx.Err() == nil || ref.actor.ctx.Err() != nil {
		log.DebugS(ctx, "Tell failed, routing to DLO",
			"actor_id", ref.actor.id,
			"msg_type", msg.MessageType())

		ref.trySendToDLO(msg)
	} else {
		log.TraceS(ctx, "Tell failed, caller cancelled",
			"actor_id", ref.actor.id,
			"msg_type", msg.MessageType())
	}
}

// Ask sends a message and returns a Future for the response, nudging the
// actor's shard to schedule a visit.
//
//nolint:lll
func (ref *actorRefImpl[M, R]) Ask(ctx context.Context, msg M) Future[R] {
	log.TraceS(ctx, "Sending Ask message",
		"actor_id", ref.actor.id,
		"msg_type", msg.MessageType())

	promise := NewPromise[R]()

	if ref.actor.ctx.Err() != nil {
		log.DebugS(ctx, "Ask failed, actor already terminated",
			"actor_id", ref.actor.id,
			"msg_type", msg.MessageType())

		promise.Complete(fn.Err[R](ErrActorTerminated))
		return promise.Future()
	}

	env := envelope[M, R]{
		message:   msg,
		promise:   promise,
		callerCtx: ctx,
	}
	ok := ref.actor.mailbox.Send(ctx, env)

	if ok {
		ref.actor.shard.schedule()

		return promise.Future()
	}

	if ref.actor.ctx.Err() != nil {
		promise.Complete(fn.Err[R](ErrActorTerminated))
	} else {
		err := ctx.Err()
		if err == nil {
			err = ErrActorTerminated
		}

		promise.Complete(fn.Err[R](err))
	}

	return promise.Future()
}

// trySendToDLO attempts to send the message to the actor's DLO if configured.
func (ref *actorRefImpl[M, R]) trySendToDLO(msg M) {
	if ref.actor.dlo != nil {
		ref.actor.dlo.Tell(context.Background(), msg)
	}
}

// ID returns the unique identifier for this actor.
func (ref *actorRefImpl[M, R]) ID() string {
	return ref.actor.id
}

// Ref returns an ActorRef for this actor.
func (a *Actor[M, R]) Ref() ActorRef[M, R] {
	return a.ref
}

// TellRef returns a TellOnlyRef for this actor.
func (a *Actor[M, R]) TellRef() TellOnlyRef[M] {
	return a.ref
}
