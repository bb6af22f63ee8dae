package build

import "runtime"

// SystemConfig is the configuration record the actor system core consumes.
// How this record gets assembled — from environment variables, a config
// file, or CLI flags — is deliberately out of scope; callers build one of
// these however they like and pass it to actor.NewActorSystemWithConfig.
type SystemConfig struct {
	// Shards is the number of actor shards user actors are distributed
	// across via `id mod Shards`. Defaults to the dispatcher's worker
	// count.
	Shards int

	// DefaultDispatcherParallelism is the worker count for the system's
	// default dispatcher. Defaults to runtime.NumCPU().
	DefaultDispatcherParallelism int

	// DefaultDispatcherTaskQueueFIFO selects FIFO (true) or LIFO (false)
	// ordering for each worker's local task queue.
	DefaultDispatcherTaskQueueFIFO bool

	// TickerIntervalMS is the timer wheel's tick granularity.
	TickerIntervalMS uint64

	// Throughput is the maximum number of messages a shard drains from
	// one cell per visit before moving to the next cell or yielding the
	// worker.
	Throughput int

	// LogConfigOnStart logs the resolved configuration at Info level
	// once, when NewActorSystemWithConfig builds the system.
	LogConfigOnStart bool

	// PosixSignals lists the signal numbers StartSystem subscribes to
	// with os/signal; each one received is handled by the join loop.
	PosixSignals []int

	// PosixShutdownSignals is the subset of PosixSignals that trigger a
	// Drain of the actor system.
	PosixShutdownSignals []int

	// ProcessExit, if true, permits the join loop's caller to exit the
	// process with a signal-derived exit code. The core never calls
	// os.Exit directly; this only gates whether a caller's exit-code
	// helper is allowed to act.
	ProcessExit bool

	// DetachedBufferSize records a capacity K for a stream's
	// detached-boundary buffer. stream.Detached does not read it: it
	// takes its capacity as an argument and uses 16 when that is zero
	// or negative.
	DetachedBufferSize int
}

// DefaultSystemConfig returns the default configuration: shard count
// matching the dispatcher's worker count, 10ms tick granularity, a
// throughput of 5 messages per cell visit, SIGINT/SIGTERM as shutdown
// signals, and a detached buffer of 16.
func DefaultSystemConfig() SystemConfig {
	parallelism := runtime.NumCPU()

	return SystemConfig{
		Shards:                         parallelism,
		DefaultDispatcherParallelism:   parallelism,
		DefaultDispatcherTaskQueueFIFO: true,
		TickerIntervalMS:               10,
		Throughput:                     5,
		LogConfigOnStart:               false,
		PosixSignals:                   nil,
		PosixShutdownSignals:           []int{2, 15}, // SIGINT, SIGTERM
		ProcessExit:                    false,
		DetachedBufferSize:             16,
	}
}
