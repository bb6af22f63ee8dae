// Package dispatcher implements the runtime's work-stealing thread pool.
// A Dispatcher executes opaque Task closures submitted to its global FIFO
// queue, or resubmitted directly onto the local queue of the worker already
// running a task (the fast path used by a shard rescheduling itself).
// Workers whose local queue runs dry steal a batch of work from a random
// peer before parking.
package dispatcher

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/loomrt/loom/internal/build"
	"golang.org/x/sync/errgroup"
)

var log = build.NewCtxLog(build.Logger("DISP"))

// TaskCtx is passed to a running Task, letting it resubmit itself (or post
// other work) onto the worker currently executing it, without going through
// the global queue.
type TaskCtx struct {
	w *worker
}

// Resubmit pushes t onto the local queue of the worker running the current
// task. This is the hot path a shard uses to reschedule itself after
// draining a batch, when it still has pending cells.
func (tc *TaskCtx) Resubmit(t Task) {
	tc.w.push(t)
}

// Task is a type-erased, one-shot unit of work. The dispatcher never
// inspects a Task's identity; it only ever invokes it once.
type Task func(tc *TaskCtx)

// Config controls a Dispatcher's shape.
type Config struct {
	// Parallelism is the number of worker goroutines. Defaults to 1 if
	// zero or negative; callers generally pass runtime.NumCPU().
	Parallelism int

	// TaskQueueFIFO selects FIFO (true) or LIFO (false) ordering for
	// tasks within one worker's local queue. The global queue and work
	// stealing are always FIFO regardless of this setting.
	TaskQueueFIFO bool

	// StealBatch is the maximum number of tasks moved from a victim's
	// local queue to the stealer's in one steal. Defaults to 32 if zero
	// or negative.
	StealBatch int
}

// Dispatcher is a bounded pool of worker goroutines, each backed by a local
// deque, sharing one global FIFO submission queue and stealing from each
// other in bulk when idle.
type Dispatcher struct {
	cfg     Config
	workers []*worker

	globalMu sync.Mutex
	global   []Task

	closed atomic.Bool

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// worker owns one local task queue, guarded by its own mutex so peers can
// steal from it without contending on the dispatcher-wide lock.
type worker struct {
	id int
	d  *Dispatcher

	mu    sync.Mutex
	cond  *sync.Cond
	local []Task
}

// New creates and starts a Dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.StealBatch <= 0 {
		cfg.StealBatch = 32
	}

	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)

	d := &Dispatcher{
		cfg:     cfg,
		workers: make([]*worker, cfg.Parallelism),
		eg:      eg,
		cancel:  cancel,
	}

	for i := range d.workers {
		w := &worker{id: i, d: d}
		w.cond = sync.NewCond(&w.mu)
		d.workers[i] = w
	}

	for i := range d.workers {
		w := d.workers[i]
		eg.Go(func() error {
			w.run(ctx)
			return nil
		})
	}

	log.InfoS(ctx, "dispatcher started",
		"parallelism", cfg.Parallelism, "fifo", cfg.TaskQueueFIFO)

	return d
}

// Parallelism returns the number of worker goroutines.
func (d *Dispatcher) Parallelism() int {
	return d.cfg.Parallelism
}

// Execute submits a task to the dispatcher's global FIFO queue. This is the
// path external callers use (a mailbox Send waking a shard); code already
// running as a Task should prefer TaskCtx.Resubmit for the local fast path.
func (d *Dispatcher) Execute(t Task) {
	if d.closed.Load() {
		return
	}

	d.globalMu.Lock()
	d.global = append(d.global, t)
	d.globalMu.Unlock()

	d.wakeOne()
}

// wakeOne signals every parked worker. Workers re-check both queues on
// waking, so over-waking only costs a redundant lock/unlock, never
// correctness.
func (d *Dispatcher) wakeOne() {
	for _, w := range d.workers {
		w.mu.Lock()
		w.cond.Signal()
		w.mu.Unlock()
	}
}

// Shutdown stops accepting new work and waits for all workers to finish
// their current task and exit. Tasks still queued when Shutdown is called
// are dropped; callers coordinate quiescence (e.g. via the watcher) before
// calling Shutdown if a clean drain is required.
func (d *Dispatcher) Shutdown() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.cancel()
	d.wakeOne()

	_ = d.eg.Wait()
}

// run is the worker's main loop: pop local, else poll global, else steal
// from a random peer, else park until signalled.
func (w *worker) run(ctx context.Context) {
	tc := &TaskCtx{w: w}

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.popLocal(); ok {
			t(tc)
			continue
		}

		if t, ok := w.d.popGlobal(); ok {
			t(tc)
			continue
		}

		if w.steal() {
			continue
		}

		w.park(ctx)
	}
}

func (w *worker) push(t Task) {
	w.mu.Lock()
	w.local = append(w.local, t)
	w.cond.Signal()
	w.mu.Unlock()
}

func (w *worker) popLocal() (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.local) == 0 {
		return nil, false
	}

	var t Task
	if w.d.cfg.TaskQueueFIFO {
		t = w.local[0]
		w.local = w.local[1:]
	} else {
		last := len(w.local) - 1
		t = w.local[last]
		w.local = w.local[:last]
	}

	return t, true
}

func (d *Dispatcher) popGlobal() (Task, bool) {
	d.globalMu.Lock()
	defer d.globalMu.Unlock()

	if len(d.global) == 0 {
		return nil, false
	}

	t := d.global[0]
	d.global = d.global[1:]

	return t, true
}

// steal takes a batch of tasks from a randomly chosen peer's local queue,
// starting the scan at a random offset so no single peer is favored.
func (w *worker) steal() bool {
	if len(w.d.workers) < 2 {
		return false
	}

	start := rand.Intn(len(w.d.workers)) //nolint:gosec
	for i := 0; i < len(w.d.workers); i++ {
		victim := w.d.workers[(start+i)%len(w.d.workers)]
		if victim == w {
			continue
		}

		stolen := victim.stealBatch(w.d.cfg.StealBatch)
		if len(stolen) == 0 {
			continue
		}

		w.mu.Lock()
		w.local = append(w.local, stolen...)
		w.mu.Unlock()

		return true
	}

	return false
}

// stealBatch removes up to max tasks from the front of the victim's queue,
// always leaving the victim at least one task so two idle-adjacent workers
// don't ping-pong a single runnable task back and forth forever.
func (v *worker) stealBatch(max int) []Task {
	v.mu.Lock()
	defer v.mu.Unlock()

	available := len(v.local) - 1
	if available <= 0 {
		return nil
	}
	if available > max {
		available = max
	}

	stolen := make([]Task, available)
	copy(stolen, v.local[:available])
	v.local = v.local[available:]

	return stolen
}

// park blocks the worker until woken by a push, a steal donation, or
// shutdown. It re-checks its local queue under the lock immediately before
// sleeping to close the race with a concurrent push.
func (w *worker) park(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.local) > 0 || ctx.Err() != nil {
		return
	}

	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer stop()

	w.cond.Wait()
}
