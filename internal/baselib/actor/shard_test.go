package actor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomrt/loom/internal/baselib/dispatcher"
)

// countingCell is a minimal cellRunner used to exercise ActorShard in
// isolation, without needing a full Actor.
type countingCell struct {
	mu      sync.Mutex
	running atomic.Bool
	seen    int
	batches []int
	done    chan struct{}
	target  int
}

func newCountingCell(target int) *countingCell {
	return &countingCell{done: make(chan struct{}), target: target}
}

func (c *countingCell) runBatch(throughput int) bool {
	if !c.running.CompareAndSwap(false, true) {
		panic("shard invariant violated: concurrent runBatch on one cell")
	}
	defer c.running.Store(false)

	c.mu.Lock()
	n := throughput
	if remaining := c.target - c.seen; remaining < n {
		n = remaining
	}
	c.seen += n
	c.batches = append(c.batches, n)
	finished := c.seen >= c.target
	c.mu.Unlock()

	if finished {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		return false
	}

	return true
}

func (c *countingCell) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen
}

// TestActorShardDrainsCellToCompletion checks that a shard repeatedly
// resubmits itself until a cell with more work than one throughput batch
// reports no more pending work.
func TestActorShardDrainsCellToCompletion(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(dispatcher.Config{Parallelism: 2})
	defer d.Shutdown()

	shard := NewActorShard(0, d, 3)
	cell := newCountingCell(10)
	shard.addCell(cell)
	shard.schedule()

	select {
	case <-cell.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for shard to drain cell")
	}

	require.Equal(t, 10, cell.count())
}

// TestActorShardRunsCellsRoundRobin verifies that across repeated shard
// runs, cells are visited starting from a rotating position rather than
// always in the same fixed order, per the round-robin fairness requirement.
func TestActorShardRunsCellsRoundRobin(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(dispatcher.Config{Parallelism: 1})
	defer d.Shutdown()

	shard := NewActorShard(0, d, 1)

	var mu sync.Mutex
	var visitOrder []int

	makeCell := func(id int) *trackingCell {
		return &trackingCell{id: id, mu: &mu, order: &visitOrder}
	}

	cellA := makeCell(0)
	cellB := makeCell(1)
	shard.addCell(cellA)
	shard.addCell(cellB)

	// Run the shard three times in a row, each time re-arming both cells
	// so each reports no further work after one call and runShard visits
	// every cell exactly once per run.
	for i := 0; i < 3; i++ {
		cellA.resetArm(1)
		cellB.resetArm(1)
		shard.schedule()
		waitForIdle(t, shard)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, visitOrder, 6)

	// The starting cell of each run should not be stuck on the same
	// index every time; with two cells the cursor alternates 0,1,0.
	firstOfRun := []int{visitOrder[0], visitOrder[2], visitOrder[4]}
	require.Equal(t, []int{0, 1, 0}, firstOfRun)
}

type trackingCell struct {
	id     int
	mu     *sync.Mutex
	order  *[]int
	armed  atomic.Int32
}

func (c *trackingCell) resetArm(n int32) {
	c.armed.Store(n)
}

func (c *trackingCell) runBatch(throughput int) bool {
	c.mu.Lock()
	*c.order = append(*c.order, c.id)
	c.mu.Unlock()

	remaining := c.armed.Add(-1)
	return remaining > 0
}

// waitForIdle polls until the shard's scheduled flag clears, meaning the
// current run (and any immediate re-scheduled continuation) has finished.
func waitForIdle(t *testing.T, s *ActorShard) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !s.scheduled.Load() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for shard to go idle")
}

// TestActorShardAtMostOneWorkerPerShard hammers a shard with many
// concurrent schedule() calls and confirms cellRunner.runBatch never
// overlaps itself, proving the scheduled flag's CAS actually serializes
// execution rather than merely reducing the chance of a race.
func TestActorShardAtMostOneWorkerPerShard(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(dispatcher.Config{Parallelism: 8})
	defer d.Shutdown()

	shard := NewActorShard(0, d, 2)
	cell := newCountingCell(500)
	shard.addCell(cell)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shard.schedule()
		}()
	}
	wg.Wait()

	select {
	case <-cell.done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for shard to finish under concurrent schedule() calls")
	}

	require.Equal(t, 500, cell.count())
}

// TestActorShardRaceWindowRecheck simulates a message arriving for a cell
// exactly as the shard is clearing its scheduled flag: the cell reports no
// pending work while runBatch is in flight, but hasPending() returns true by
// the time the post-clear check runs, so the shard must reschedule itself
// rather than leaving the cell stranded.
func TestActorShardRaceWindowRecheck(t *testing.T) {
	t.Parallel()

	d := dispatcher.New(dispatcher.Config{Parallelism: 2})
	defer d.Shutdown()

	shard := NewActorShard(0, d, 5)
	cell := newRaceCell()
	shard.addCell(cell)
	shard.schedule()

	select {
	case <-cell.secondRunDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shard never rescheduled after the race-window recheck found pending work")
	}
}

// raceCell's first runBatch call reports no more work (simulating the
// window between draining the mailbox and clearing scheduled), but its
// hasPending() reports true exactly once, forcing the shard's post-clear
// recheck to reclaim the flag and resubmit.
type raceCell struct {
	calls         atomic.Int32
	pendingPolled atomic.Bool
	secondRunDone chan struct{}
	once          sync.Once
}

func newRaceCell() *raceCell {
	return &raceCell{secondRunDone: make(chan struct{})}
}

func (c *raceCell) runBatch(throughput int) bool {
	if c.calls.Add(1) > 1 {
		c.once.Do(func() { close(c.secondRunDone) })
	}
	return false
}

func (c *raceCell) hasPending() bool {
	return c.pendingPolled.CompareAndSwap(false, true)
}
