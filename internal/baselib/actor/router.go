package actor

import (
	"context"
	"math/rand"
	"sync/atomic"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// RoutingStrategy picks one actor reference out of a set of candidates
// currently registered under a ServiceKey. Implementations must be safe for
// concurrent use, since a router may be shared across many callers.
type RoutingStrategy[M Message, R any] interface {
	// Pick selects one reference from candidates. candidates is never
	// empty when Pick is called.
	Pick(candidates []ActorRef[M, R]) ActorRef[M, R]
}

// roundRobinStrategy cycles through candidates in registration order.
type roundRobinStrategy[M Message, R any] struct {
	next atomic.Uint64
}

// NewRoundRobinStrategy returns a RoutingStrategy that distributes messages
// evenly across candidates in round-robin order. This is the router's
// default strategy.
func NewRoundRobinStrategy[M Message, R any]() RoutingStrategy[M, R] {
	return &roundRobinStrategy[M, R]{}
}

// Pick returns the next candidate in round-robin order.
func (s *roundRobinStrategy[M, R]) Pick(candidates []ActorRef[M, R]) ActorRef[M, R] {
	idx := s.next.Add(1) - 1
	return candidates[idx%uint64(len(candidates))]
}

// randomStrategy picks a uniformly random candidate on every call.
type randomStrategy[M Message, R any] struct{}

// NewRandomStrategy returns a RoutingStrategy that selects a candidate
// uniformly at random on each dispatch.
func NewRandomStrategy[M Message, R any]() RoutingStrategy[M, R] {
	return &randomStrategy[M, R]{}
}

// Pick returns a uniformly random candidate.
func (s *randomStrategy[M, R]) Pick(candidates []ActorRef[M, R]) ActorRef[M, R] {
	return candidates[rand.Intn(len(candidates))] //nolint:gosec
}

// router is a virtual ActorRef that fans Tell/Ask calls out to whichever
// actors are currently registered under a ServiceKey, via a RoutingStrategy.
// Candidates are resolved from the receptionist on every call, so routers
// tolerate actors joining or leaving the service key at runtime.
type router[M Message, R any] struct {
	receptionist *Receptionist
	key          ServiceKey[M, R]
	strategy     RoutingStrategy[M, R]
	dlo          ActorRef[Message, any]
}

// NewRouter constructs a virtual ActorRef that load-balances across the
// actors registered under key, using strategy to pick among them. If no
// candidates are currently registered, calls are routed to dlo instead of
// panicking or blocking.
func NewRouter[M Message, R any](
	receptionist *Receptionist, key ServiceKey[M, R],
	strategy RoutingStrategy[M, R], dlo ActorRef[Message, any],
) ActorRef[M, R] {

	return &router[M, R]{
		receptionist: receptionist,
		key:          key,
		strategy:     strategy,
		dlo:          dlo,
	}
}

// ID returns a stable identifier for the router itself, not any one
// candidate, since the set of candidates can change between calls.
func (r *router[M, R]) ID() string {
	return "router:" + r.key.name
}

// resolve picks a live candidate, or reports false if none are registered.
func (r *router[M, R]) resolve() (ActorRef[M, R], bool) {
	candidates := FindInReceptionist(r.receptionist, r.key)
	if len(candidates) == 0 {
		return nil, false
	}

	return r.strategy.Pick(candidates), true
}

// Tell routes msg to one candidate, or to the dead letter office if no
// candidate is currently registered.
func (r *router[M, R]) Tell(ctx context.Context, msg M) {
	target, ok := r.resolve()
	if !ok {
		if r.dlo != nil {
			r.dlo.Tell(ctx, msg)
		}

		return
	}

	target.Tell(ctx, msg)
}

// Ask routes msg to one candidate and returns its Future. If no candidate is
// registered, the returned Future is already completed with
// ErrActorTerminated.
func (r *router[M, R]) Ask(ctx context.Context, msg M) Future[R] {
	target, ok := r.resolve()
	if !ok {
		promise := NewPromise[R]()
		promise.Complete(fn.Err[R](ErrActorTerminated))

		return promise.Future()
	}

	return target.Ask(ctx, msg)
}
