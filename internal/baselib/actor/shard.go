package actor

import (
	"sync"
	"sync/atomic"

	"github.com/loomrt/loom/internal/baselib/dispatcher"
)

// cellRunner is the narrow surface a shard needs from a cell: drain up to
// throughput messages and report whether more work remains.
type cellRunner interface {
	runBatch(throughput int) (hasMore bool)
}

// ActorShard is a scheduling unit: it owns a set of cells and an atomic
// "scheduled" flag that guarantees at most one dispatcher worker is ever
// running this shard's cells at a time, so every cell on the shard observes
// strictly serialized execution even though many shards run concurrently
// across the dispatcher's workers.
type ActorShard struct {
	id         int
	dispatcher *dispatcher.Dispatcher
	throughput int

	scheduled atomic.Bool

	mu     sync.Mutex
	cells  []cellRunner
	cursor int
}

// NewActorShard creates a shard bound to d. throughput is the maximum number
// of messages drained from a single cell per visit before moving to the
// next cell (spec default: 5).
func NewActorShard(id int, d *dispatcher.Dispatcher, throughput int) *ActorShard {
	if throughput <= 0 {
		throughput = 5
	}

	return &ActorShard{id: id, dispatcher: d, throughput: throughput}
}

// addCell registers a cell with the shard. Cells are never removed
// individually; a stopped cell's runBatch simply reports no more work and
// declines to process further envelopes, so it becomes permanently idle
// rather than needing eviction from the round-robin list.
func (s *ActorShard) addCell(c cellRunner) {
	s.mu.Lock()
	s.cells = append(s.cells, c)
	s.mu.Unlock()
}

// schedule arranges for the shard's cells to be visited by a dispatcher
// worker, unless a visit is already scheduled or in flight. This is the
// fast, lock-cheap path every Tell/Ask goes through: a CAS on an atomic
// bool, and a dispatcher submission only on the transition from idle to
// scheduled.
func (s *ActorShard) schedule() {
	if s.scheduled.CompareAndSwap(false, true) {
		s.dispatcher.Execute(s.runShard)
	}
}

// runShard is the dispatcher Task that drains the shard's cells. Cells are
// visited round-robin across shard runs (not just within one run) so a
// chatty cell can't starve its neighbors indefinitely.
func (s *ActorShard) runShard(tc *dispatcher.TaskCtx) {
	s.mu.Lock()
	cells := make([]cellRunner, len(s.cells))
	copy(cells, s.cells)
	start := s.cursor
	s.cursor = (s.cursor + 1) % max(1, len(cells))
	s.mu.Unlock()

	anyMore := false
	for i := range cells {
		cell := cells[(start+i)%len(cells)]
		if cell.runBatch(s.throughput) {
			anyMore = true
		}
	}

	if anyMore {
		tc.Resubmit(s.runShard)
		return
	}

	// Clear the scheduled flag, then re-check for a race: a message may
	// have arrived for some cell in between the last runBatch call above
	// and the flag being cleared. If so, reclaim the flag and resubmit
	// rather than leaving work stranded with scheduled permanently false.
	s.scheduled.Store(false)

	s.mu.Lock()
	stillPending := false
	for _, cell := range s.cells {
		if pc, ok := cell.(pendingChecker); ok && pc.hasPending() {
			stillPending = true
			break
		}
	}
	s.mu.Unlock()

	if stillPending && s.scheduled.CompareAndSwap(false, true) {
		tc.Resubmit(s.runShard)
	}
}

// pendingChecker lets a shard probe whether a cell has queued messages
// without draining them, used only for the re-check race window in
// runShard.
type pendingChecker interface {
	hasPending() bool
}
