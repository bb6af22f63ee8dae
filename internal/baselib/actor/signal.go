package actor

import "context"

// Signal is the sealed interface for lifecycle notifications an actor can
// receive alongside its ordinary user messages: Started when its cell first
// runs, Terminated when a watched actor stops, Failed when its own behavior
// panicked or errored and supervision decided to keep it running.
type Signal interface {
	Message

	signalMarker()
}

// baseSignal is embeddable to satisfy Signal's unexported marker, mirroring
// BaseMessage's role for ordinary messages.
type baseSignal struct{ BaseMessage }

func (baseSignal) signalMarker() {}

// Started is delivered once, before a cell processes its first user message.
type Started struct{ baseSignal }

// MessageType identifies this signal for routing/logging.
func (Started) MessageType() string { return "actor.Started" }

// Terminated is delivered to every watcher registered on an actor, once,
// after that actor has fully drained its mailbox and stopped.
type Terminated struct {
	baseSignal

	// ActorID is the ID of the actor that stopped.
	ActorID string
}

// MessageType identifies this signal for routing/logging.
func (Terminated) MessageType() string { return "actor.Terminated" }

// Failed is delivered to an actor's own behavior, if it implements
// ReceiveSignal, when Supervise resolves a panic or returned error to
// FailureResume: the actor keeps running but is told what happened.
type Failed struct {
	baseSignal

	Cause error
}

// MessageType identifies this signal for routing/logging.
func (Failed) MessageType() string { return "actor.Failed" }

// ChildStopped is delivered to a parent actor's own behavior, if it
// implements ReceiveSignal, once one of its children has fully completed its
// stop sequence — the spec.md §4.4 stop sequence's step 4 ("Notifies its
// parent via a ChildStopped(id) signal"), distinct from Terminated, which
// goes to a cell's explicit watchers rather than its parent.
type ChildStopped struct {
	baseSignal

	// ActorID is the id of the child that stopped.
	ActorID string
}

// MessageType identifies this signal for routing/logging.
func (ChildStopped) MessageType() string { return "actor.ChildStopped" }

// FailureAction is the supervision decision made after a behavior's Receive
// panics. Only a panic recovered from Receive triggers this path; errors
// returned in fn.Result go back to the caller and are never supervised, and
// a behavior has no call that raises a failure without panicking.
type FailureAction int

const (
	// FailureResume keeps the actor running; its mailbox is untouched and
	// processing continues with the next envelope.
	FailureResume FailureAction = iota

	// FailureStop stops the actor, as if Stop() had been called.
	FailureStop

	// FailureEscalate stops the actor and re-raises the failure to its
	// parent's Supervise. The parent is stopped as well when that returns
	// FailureStop or FailureEscalate; a parent whose behavior doesn't
	// implement Supervisor answers FailureStop. An actor with no parent
	// treats an escalation as FailureStop.
	FailureEscalate
)

// Supervisor is an optional interface an ActorBehavior can implement to
// control how its cell responds to a panic recovered from Receive. Behaviors
// that don't implement Supervisor get the default: FailureStop.
type Supervisor interface {
	// Supervise is invoked with the recovered panic value (wrapped as a
	// UserError), and returns the action the cell should take.
	Supervise(err error) FailureAction
}

// ReceiveSignal is an optional interface an ActorBehavior can implement to
// observe lifecycle signals (Started, Terminated from a watched actor,
// Failed) in addition to its ordinary typed messages.
type ReceiveSignal interface {
	ReceiveSignal(ctx context.Context, sig Signal)
}
