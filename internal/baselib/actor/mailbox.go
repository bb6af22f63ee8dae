package actor

import (
	"context"
	"iter"
	"sync"
	"time"
)

// UnboundedMailbox is the default Mailbox implementation for shard-scheduled
// cells: a mutex-guarded slice appended to by any number of senders and
// drained by the one shard currently executing the cell's batch. Unlike
// ChannelMailbox, Send and TrySend never block on capacity — the queue
// grows to hold whatever has been sent — which matches the shard model's
// assumption that enqueueing a message is always an O(1), non-blocking
// operation that may need to wake a parked worker.
type UnboundedMailbox[M Message, R any] struct {
	mu       sync.Mutex
	queue    []envelope[M, R]
	closed   bool
	actorCtx context.Context
}

// NewUnboundedMailbox creates an empty UnboundedMailbox bound to actorCtx;
// Send and TrySend refuse once actorCtx is done.
func NewUnboundedMailbox[M Message, R any](actorCtx context.Context) *UnboundedMailbox[M, R] {
	return &UnboundedMailbox[M, R]{actorCtx: actorCtx}
}

// Send enqueues env and returns true, unless the mailbox is closed or the
// actor's context has already been cancelled. Because the queue is
// unbounded, Send never actually blocks; ctx is honored only as a
// pre-enqueue cancellation check, consistent with the blocking Mailbox
// contract other implementations follow.
func (m *UnboundedMailbox[M, R]) Send(ctx context.Context, env envelope[M, R]) bool {
	if ctx.Err() != nil || m.actorCtx.Err() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.queue = append(m.queue, env)

	return true
}

// TrySend is equivalent to Send for an unbounded mailbox, since there is no
// capacity to exhaust.
func (m *UnboundedMailbox[M, R]) TrySend(env envelope[M, R]) bool {
	if m.actorCtx.Err() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.queue = append(m.queue, env)

	return true
}

// TryReceive pops the oldest queued envelope without blocking.
func (m *UnboundedMailbox[M, R]) TryReceive() (envelope[M, R], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		var zero envelope[M, R]
		return zero, false
	}

	env := m.queue[0]
	m.queue = m.queue[1:]

	return env, true
}

// Receive adapts the mailbox's non-blocking pull primitive to the blocking
// iterator shape Mailbox requires. It is provided for compatibility with
// code written against the goroutine-per-actor model (tests, the dead
// letter actor's simple behavior); shard-scheduled cells call TryReceive
// directly instead and never invoke this method.
func (m *UnboundedMailbox[M, R]) Receive(ctx context.Context) iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		for {
			if ctx.Err() != nil {
				return
			}

			env, ok := m.TryReceive()
			if !ok {
				if m.IsClosed() {
					return
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Millisecond):
				}

				continue
			}

			if !yield(env) {
				return
			}
		}
	}
}

// Close marks the mailbox closed; subsequent Send/TrySend calls fail.
func (m *UnboundedMailbox[M, R]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
}

// IsClosed reports whether Close has been called.
func (m *UnboundedMailbox[M, R]) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// Drain yields any envelopes left in the queue after Close. It is a no-op
// if the mailbox isn't closed yet.
func (m *UnboundedMailbox[M, R]) Drain() iter.Seq[envelope[M, R]] {
	return func(yield func(envelope[M, R]) bool) {
		if !m.IsClosed() {
			return
		}

		for {
			env, ok := m.TryReceive()
			if !ok {
				return
			}

			if !yield(env) {
				return
			}
		}
	}
}

// Len reports the number of envelopes currently queued, used by a shard to
// decide whether a cell still has pending work.
func (m *UnboundedMailbox[M, R]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.queue)
}
