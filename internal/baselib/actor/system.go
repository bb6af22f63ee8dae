package actor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/loomrt/loom/internal/baselib/dispatcher"
	wheeltimer "github.com/loomrt/loom/internal/baselib/timer"
	"github.com/loomrt/loom/internal/build"
)

// registerConfig holds optional configuration for actor registration.
type registerConfig struct {
	// cleanupTimeout overrides the default OnStop cleanup timeout.
	cleanupTimeout fn.Option[time.Duration]
}

// RegisterOption is a functional option for configuring actor registration
// via RegisterWithSystem.
type RegisterOption func(*registerConfig)

// WithCleanupTimeout sets the OnStop cleanup timeout for the actor. If not
// specified, the default of 5 seconds is used. Use a longer timeout for
// actors that manage external subprocesses requiring graceful shutdown.
func WithCleanupTimeout(d time.Duration) RegisterOption {
	return func(cfg *registerConfig) {
		cfg.cleanupTimeout = fn.Some(d)
	}
}

// stoppable defines an interface for components that can be stopped.
// This is unexported as it's an internal detail of ActorSystem for managing
// actors that need to be shut down.
type stoppable interface {
	Stop()
}

// SystemConfig is the configuration record the ActorSystem consumes. It is
// build.SystemConfig verbatim: the core only consumes this record, it never
// assembles one from flags/env/files itself.
type SystemConfig = build.SystemConfig

// DefaultConfig returns the default ActorSystem configuration.
func DefaultConfig() SystemConfig {
	return build.DefaultSystemConfig()
}

// ActorSystem manages the lifecycle of actors and provides coordination
// services such as a receptionist for actor discovery and a dead letter office
// for undeliverable messages. It also handles the graceful shutdown of all
// managed actors.
type ActorSystem struct {
	// receptionist is used for actor discovery.
	receptionist *Receptionist

	// actors stores all actors managed by the system, keyed by their ID.
	// This includes the deadLetterActor.
	actors map[string]stoppable

	// deadLetterActor handles undeliverable messages.
	deadLetterActor ActorRef[Message, any]

	// config holds the system-wide configuration.
	config SystemConfig

	// dispatcher is the work-stealing pool every shard submits its
	// "run shard" tasks to.
	dispatcher *dispatcher.Dispatcher

	// shards are the user-actor shards, assigned by id mod len(shards).
	shards []*ActorShard

	// systemShard hosts the dead letter actor and any other actor the
	// system itself spawns outside the user shard pool.
	systemShard *ActorShard

	// nextActorNum is an atomic counter used only to pick a shard index
	// for each newly registered actor (id mod len(shards)); it is
	// distinct from the actor's string ID used for naming/lookup.
	nextActorNum atomic.Uint64

	// timerRef and watcherRef are set once StartTimer/StartWatcher have
	// run; both are nil until a caller opts in via StartSystem. Plain
	// NewActorSystem/NewActorSystemWithConfig callers that only need
	// RegisterWithSystem + Shutdown never pay for either.
	timerRef   ActorRef[TimerMessage, wheeltimer.EntryID]
	watcherRef ActorRef[WatcherMessage, any]

	// mu protects the 'actors' map.
	mu sync.RWMutex

	// ctx is the main context for the actor system.
	ctx context.Context

	// cancel cancels the main system context.
	cancel context.CancelFunc

	// actorWg tracks running actor cells for deterministic shutdown.
	actorWg sync.WaitGroup
}

// NewActorSystem creates a new actor system using the default configuration.
func NewActorSystem() *ActorSystem {
	return NewActorSystemWithConfig(DefaultConfig())
}

// NewActorSystemWithConfig creates a new actor system with custom configuration
func NewActorSystemWithConfig(config SystemConfig) *ActorSystem {
	ctx, cancel := context.WithCancel(context.Background())

	disp := dispatcher.New(dispatcher.Config{
		Parallelism:   config.DefaultDispatcherParallelism,
		TaskQueueFIFO: config.DefaultDispatcherTaskQueueFIFO,
	})

	shardCount := config.Shards
	if shardCount <= 0 {
		shardCount = disp.Parallelism()
	}

	shards := make([]*ActorShard, shardCount)
	for i := range shards {
		shards[i] = NewActorShard(i, disp, config.Throughput)
	}

	// Initialize the core ActorSystem components.
	system := &ActorSystem{
		receptionist: newReceptionist(),
		config:       config,
		dispatcher:   disp,
		shards:       shards,
		systemShard:  NewActorShard(-1, disp, config.Throughput),
		actors:       make(map[string]stoppable),
		ctx:          ctx,
		cancel:       cancel,
	}

	if config.LogConfigOnStart {
		log.InfoS(ctx, "actor system configuration",
			"shards", shardCount,
			"dispatcher_parallelism", config.DefaultDispatcherParallelism,
			"ticker_interval_ms", config.TickerIntervalMS,
			"throughput", config.Throughput)
	}

	// Define the behavior for the dead letter actor. It simply returns an
	// error indicating the message was undeliverable.
	deadLetterBehavior := NewFunctionBehavior(
		func(ctx context.Context, msg Message) fn.Result[any] {
			return fn.Err[any](errors.New(
				"message undeliverable: " + msg.MessageType(),
			))
		},
	)

	// Create the raw dead letter actor (*Actor instance). The DLO's own DLO
	// reference is nil to prevent loops if messages to the DLO itself fail.
	deadLetterActorCfg := ActorConfig[Message, any]{
		ID:       "dead-letters",
		Behavior: deadLetterBehavior,
		DLO:      nil,
		Shard:    system.systemShard,
		Wg:       &system.actorWg,
	}
	deadLetterRawActor := NewActor[Message, any](deadLetterActorCfg)
	deadLetterRawActor.Start()
	system.deadLetterActor = deadLetterRawActor.Ref()

	// Add the raw actor to the map of stoppable actors. No lock needed here
	// as 'system' is not yet accessible concurrently.
	system.actors[deadLetterRawActor.id] = deadLetterRawActor

	// The system is now fully initialized and ready.
	return system
}

// shardFor picks the shard a newly registered actor is assigned to, by
// actorNum mod len(shards), matching the spec's "id mod shard_count"
// assignment rule.
func (as *ActorSystem) shardFor(actorNum uint64) *ActorShard {
	if len(as.shards) == 0 {
		return as.systemShard
	}

	return as.shards[actorNum%uint64(len(as.shards))]
}

// Dispatcher returns the system's work-stealing dispatcher, for components
// (the timer, stream stages) that need to submit tasks directly rather than
// through an actor mailbox.
func (as *ActorSystem) Dispatcher() *dispatcher.Dispatcher {
	return as.dispatcher
}

// newStoppedActorRef creates a stopped actor reference with the given ID.
// This is used to return a safe non-nil reference when actor creation fails,
// ensuring any calls to the returned ref will fail with ErrActorTerminated
// rather than causing a nil pointer panic.
func newStoppedActorRef[M Message, R any](id string) ActorRef[M, R] {
	cfg := ActorConfig[M, R]{ID: id}
	actor := NewActor(cfg)
	actor.Stop()
	return actor.Ref()
}

// RegisterWithSystem creates an actor with the given ID, service key, and
// behavior within the specified ActorSystem. It starts the actor, adds it to
// the system's management, registers it with the receptionist using the
// provided key, and returns its ActorRef.
func RegisterWithSystem[M Message, R any](as *ActorSystem, id string, key ServiceKey[M, R],
	behavior ActorBehavior[M, R], opts ...RegisterOption,
) ActorRef[M, R] {
	if as.ctx.Err() != nil {
		// To avoid returning nil and causing a panic, we can create and
		// return a reference to a dummy actor that is already stopped.
		// This ensures that any calls to the returned ref will fail
		// with ErrActorTerminated.
		return newStoppedActorRef[M, R](id)
	}

	// Apply functional options.
	var regCfg registerConfig
	for _, opt := range opts {
		opt(&regCfg)
	}

	actorCfg := ActorConfig[M, R]{
		ID:             id,
		Behavior:       behavior,
		DLO:            as.deadLetterActor,
		Shard:          as.shardFor(as.nextActorNum.Add(1)),
		Wg:             &as.actorWg,
		CleanupTimeout: regCfg.cleanupTimeout,
	}
	actorInstance := NewActor(actorCfg)
	actorInstance.Start()

	// Add the actor instance to the system's list of stoppable actors.
	// This map is protected by the system's mutex.
	as.mu.Lock()
	as.actors[actorInstance.id] = actorInstance
	as.mu.Unlock()

	// If a watcher is running (StartSystem was used), hand it this actor
	// so DrainSystem/StopSystem account for it.
	if as.watcherRef != nil {
		as.watcherRef.Tell(as.ctx, RegisterActor{
			ActorID: actorInstance.id,
			Target:  actorInstance,
		})
	}

	// Register the actor's reference with the receptionist under the given
	// service key, making it discoverable by other parts of the system.
	err := RegisterWithReceptionist(as.receptionist, key, actorInstance.Ref())
	if err != nil {
		// Type mismatch detected. Stop the actor we just created and
		// return a dummy stopped actor to avoid nil panic.
		actorInstance.Stop()
		as.mu.Lock()
		delete(as.actors, actorInstance.id)
		as.mu.Unlock()

		return newStoppedActorRef[M, R](id)
	}

	log.DebugS(as.ctx, "Actor registered with system",
		"actor_id", id,
		"service_key", key.name)

	return actorInstance.Ref()
}

// Receptionist returns the system's receptionist, which can be used for
// actor service discovery (finding actors by ServiceKey).
func (as *ActorSystem) Receptionist() *Receptionist {
	return as.receptionist
}

// DeadLetters returns a reference to the system's dead letter actor. Messages
// that cannot be delivered to their intended recipient (e.g., if an Ask
// context is cancelled before enqueuing) may be routed here if not otherwise
// handled.
func (as *ActorSystem) DeadLetters() ActorRef[Message, any] {
	return as.deadLetterActor
}

// Shutdown gracefully stops the actor system and waits for all actors to
// finish processing. It iterates through all managed actors, calls their Stop
// method, and then blocks until every actor cell has finalized or the
// provided context expires. This ensures deterministic shutdown with guaranteed
// resource cleanup. This method is safe for concurrent use.
func (as *ActorSystem) Shutdown(ctx context.Context) error {
	// Cancel the main system context first to prevent new actor
	// registrations. Any RegisterWithSystem call that occurs after this
	// point will see as.ctx.Err() != nil and return a dummy stopped actor.
	// This ordering is critical to prevent a race where a new actor could
	// be registered and increment the WaitGroup after we snapshot but
	// before we wait, causing indefinite blocking.
	as.cancel()

	// Create a slice of actors to stop. This avoids holding the lock while
	// calling Stop() on each actor, and includes the dead letter actor.
	var actorsToStop []stoppable
	as.mu.RLock()
	for _, actor := range as.actors {
		actorsToStop = append(actorsToStop, actor)
	}
	as.mu.RUnlock()

	log.InfoS(ctx, "Actor system shutting down",
		"num_actors", len(actorsToStop))

	// Notify all managed actors to stop. Actor.Stop() is non-blocking.
	// Each actor's Stop method will cancel its internal context, so the
	// next runBatch of its cell finalizes it.
	for _, actor := range actorsToStop {
		actor.Stop()
	}

	// Clear the actors map after initiating their shutdown.
	as.mu.Lock()
	as.actors = nil
	as.mu.Unlock()

	// Wait for all actor cells to finalize. We launch a goroutine to wait
	// on the WaitGroup so we can also respect the context deadline. If the
	// context times out, this goroutine continues running until the
	// WaitGroup reaches zero (which could be indefinite if actors are truly
	// hung). This is acceptable since shutdown timeouts indicate abnormal
	// conditions and the single goroutine overhead is negligible compared
	// to potentially leaked actors.
	done := make(chan struct{})
	go func() {
		as.actorWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// All actors have finished processing.
		as.dispatcher.Shutdown()

		log.InfoS(ctx, "Actor system shutdown completed")

		return nil

	case <-ctx.Done():
		// Context expired before all actors finished—some cells are
		// still running on dispatcher workers and may leak. This
		// indicates either misbehaving actors or insufficient shutdown
		// timeout. The dispatcher waits for its workers to exit, so it
		// is shut down in the background rather than blocking here.
		go as.dispatcher.Shutdown()

		log.ErrorS(ctx, "Actor system shutdown incomplete, "+
			"some actors may have leaked", ctx.Err())

		return ctx.Err()
	}
}

// StopAndRemoveActor stops a specific actor by its ID and removes it from the
// ActorSystem's management. It returns true if the actor was found and stopped,
// false otherwise.
func (as *ActorSystem) StopAndRemoveActor(id string) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	actorToStop, exists := as.actors[id]
	if !exists {
		return false
	}

	// Stop the actor. This is non-blocking.
	actorToStop.Stop()

	// Remove from the system's management.
	delete(as.actors, id)

	log.DebugS(as.ctx, "Actor stopped and removed from system",
		"actor_id", id)

	return true
}

// UnregisterFromReceptionist removes an actor reference from a service key in
// the given receptionist. It returns true if the reference was found and
// removed, and false otherwise. This is a package-level generic function
// because methods cannot have their own type parameters in Go.
func UnregisterFromReceptionist[M Message, R any](r *Receptionist,
	key ServiceKey[M, R], refToRemove ActorRef[M, R],
) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs, exists := r.registrations[key.name]
	if !exists {
		return false
	}

	found := false

	// Build a new slice containing only the references that are not the one
	// to be removed.
	newRefs := make([]BaseActorRef, 0, len(refs)-1)
	for _, baseRef := range refs {
		// Try to assert the base ref to the specific ActorRef[M,R] type.
		if specificActorRef, ok := baseRef.(ActorRef[M, R]); ok {
			// If the type assertion is successful and it's the one
			// we want to remove, mark as found and skip adding it
			// to newRefs.
			if specificActorRef == refToRemove {
				found = true
				continue // Don't add to newRefs, effectively removing it.
			}
		}
		newRefs = append(newRefs, baseRef)
	}

	if !found {
		return false
	}

	// If the new list of references is empty, remove the key from the map
	// and clean up the type registry. This prevents memory leaks and allows
	// re-registration with different types after all actors are unregistered.
	if len(newRefs) == 0 {
		delete(r.registrations, key.name)
		delete(r.typeRegistry, key.name)
	} else {
		r.registrations[key.name] = newRefs
	}

	return true
}

// ServiceKey is a type-safe identifier used for registering and discovering
// actors via the Receptionist. The generic type parameters M (Message) and R
// (Response) ensure that only actors handling compatible message/response types
// are associated with and retrieved for this key.
type ServiceKey[M Message, R any] struct {
	name string
}

// NewServiceKey creates a new service key with the given name. The name is used
// as the lookup key within the Receptionist.
func NewServiceKey[M Message, R any](name string) ServiceKey[M, R] {
	return ServiceKey[M, R]{name: name}
}

// Spawn registers an actor for this service key within the given ActorSystem.
// It's a convenience method that calls RegisterWithSystem, starting the actor
// and registering it with the receptionist.
func (sk ServiceKey[M, R]) Spawn(as *ActorSystem, id string,
	behavior ActorBehavior[M, R],
) ActorRef[M, R] {
	return RegisterWithSystem(as, id, sk, behavior)
}

// RouterOption is a functional option for configuring a router.
type RouterOption[M Message, R any] func(*routerConfig[M, R])

// routerConfig holds configuration for router creation.
type routerConfig[M Message, R any] struct {
	strategy RoutingStrategy[M, R]
}

// WithStrategy specifies a custom routing strategy for the router.
func WithStrategy[M Message, R any](strategy RoutingStrategy[M, R]) RouterOption[M, R] {
	return func(cfg *routerConfig[M, R]) {
		cfg.strategy = strategy
	}
}

// Ref returns a virtual ActorRef (Router) that automatically load-balances
// messages across all actors registered under this service key. This is the
// recommended way for components to interact with services, as it provides
// location transparency and automatic failover. The router uses round-robin
// strategy by default, but can be customized with functional options.
//
// Example:
//
//	ref := key.Ref(system)  // Round-robin (default)
//	ref := key.Ref(system, WithStrategy(customStrategy))  // Custom
func (sk ServiceKey[M, R]) Ref(sys SystemContext, opts ...RouterOption[M, R]) ActorRef[M, R] {
	// Apply default configuration.
	cfg := &routerConfig[M, R]{
		strategy: NewRoundRobinStrategy[M, R](),
	}

	// Apply functional options.
	for _, opt := range opts {
		opt(cfg)
	}

	return NewRouter(
		sys.Receptionist(), sk, cfg.strategy, sys.DeadLetters(),
	)
}

// Broadcast sends a message to ALL actors registered under this service key.
// This is useful for fan-out notifications, cache invalidation, or coordinated
// shutdown signals. The context applies to all send operations. Returns the
// number of actors the message was sent to. Note that this is a fire-and-forget
// operation and does not guarantee delivery or processing.
func (sk ServiceKey[M, R]) Broadcast(sys SystemContext, ctx context.Context, msg M) int {
	refs := FindInReceptionist(sys.Receptionist(), sk)

	for _, ref := range refs {
		ref.Tell(ctx, msg)
	}

	return len(refs)
}

// Unregister removes an actor reference associated with this service key from
// the receptionist. The actor continues running and can still be accessed
// through other service keys it may be registered under. To stop the actor,
// use StopAndRemoveActor separately. This separation allows actors to provide
// multiple services and gracefully degrade by stopping advertisement on some
// interfaces while continuing to serve others.
//
// Returns true if the actor was found and unregistered, false otherwise.
func (sk ServiceKey[M, R]) Unregister(sys SystemContext,
	refToRemove ActorRef[M, R],
) bool {
	return UnregisterFromReceptionist(
		sys.Receptionist(), sk, refToRemove,
	)
}

// UnregisterAll removes all actor references associated with this service key
// from the receptionist. The actors continue running and can still be accessed
// through other service keys. To stop the actors, use StopAndRemoveActor
// separately for each actor reference.
//
// Returns the number of actors that were unregistered.
func (sk ServiceKey[M, R]) UnregisterAll(sys SystemContext) int {
	r := sys.Receptionist()

	r.mu.Lock()
	defer r.mu.Unlock()

	currentRefs, exists := r.registrations[sk.name]
	if !exists {
		return 0
	}

	// Build a new slice containing only references that don't match our
	// service key's type. This handles the case where the same key name
	// might have refs of different types registered.
	newRefs := make([]BaseActorRef, 0, len(currentRefs))
	unregisteredCount := 0

	for _, item := range currentRefs {
		if _, ok := item.(ActorRef[M, R]); ok {
			// This ref matches our type, so we're unregistering it.
			unregisteredCount++
		} else {
			// Different type, keep it.
			newRefs = append(newRefs, item)
		}
	}

	if unregisteredCount == 0 {
		return 0
	}

	// Update or delete the registration entry. If all refs are removed,
	// also clean up the type registry to prevent memory leaks and allow
	// re-registration with different types.
	if len(newRefs) == 0 {
		delete(r.registrations, sk.name)
		delete(r.typeRegistry, sk.name)
	} else {
		r.registrations[sk.name] = newRefs
	}

	return unregisteredCount
}

// serviceTypeInfo captures the type signature of a service for validation.
type serviceTypeInfo struct {
	msgTypeName  string
	respTypeName string
}

// Receptionist provides service discovery for actors. Actors can be registered
// under a ServiceKey and later discovered by other actors or system components.
type Receptionist struct {
	// registrations stores ActorRef instances as BaseActorRef, keyed by
	// ServiceKey.name.
	registrations map[string][]BaseActorRef

	// typeRegistry tracks the types registered under each service name to
	// prevent type conflicts.
	typeRegistry map[string]serviceTypeInfo

	// mu protects access to registrations and typeRegistry.
	mu sync.RWMutex
}

// newReceptionist creates a new Receptionist instance.
func newReceptionist() *Receptionist {
	return &Receptionist{
		registrations: make(map[string][]BaseActorRef),
		typeRegistry:  make(map[string]serviceTypeInfo),
	}
}

// RegisterWithReceptionist registers an actor with a service key in the given
// receptionist. This is a package-level generic function because methods
// cannot have their own type parameters in Go (as of the current version).
// It validates that the service key types match any existing registrations
// under the same name and returns an error if there's a type mismatch.
func RegisterWithReceptionist[M Message, R any](
	r *Receptionist, key ServiceKey[M, R], ref ActorRef[M, R],
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Get type names for validation using reflect to avoid allocating
	// zero-value instances. This is more efficient and idiomatic for
	// extracting type information from generic type parameters.
	msgTypeName := reflect.TypeOf((*M)(nil)).Elem().String()
	respTypeName := reflect.TypeOf((*R)(nil)).Elem().String()

	expectedTypes := serviceTypeInfo{
		msgTypeName:  msgTypeName,
		respTypeName: respTypeName,
	}

	// Check if this service name is already registered with different types.
	if existingTypes, exists := r.typeRegistry[key.name]; exists {
		if existingTypes != expectedTypes {
			return fmt.Errorf("%w: service '%s' already registered "+
				"with types (%s, %s), cannot register with (%s, %s)",
				ErrServiceKeyTypeMismatch, key.name,
				existingTypes.msgTypeName, existingTypes.respTypeName,
				msgTypeName, respTypeName)
		}
	} else {
		// First registration for this name, record the types.
		r.typeRegistry[key.name] = expectedTypes
	}

	// Initialize the slice for this key if it's the first registration.
	if _, exists := r.registrations[key.name]; !exists {
		r.registrations[key.name] = make([]BaseActorRef, 0)
	}

	r.registrations[key.name] = append(r.registrations[key.name], ref)

	return nil
}

// FindInReceptionist returns all actors registered with a service key in the
// given receptionist. This is a package-level generic function because methods
// cannot have their own type parameters. It performs a type assertion from
// BaseActorRef to the specific ActorRef[M, R] type to ensure type safety.
func FindInReceptionist[M Message, R any](
	r *Receptionist, key ServiceKey[M, R],
) []ActorRef[M, R] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if baseRefs, exists := r.registrations[key.name]; exists {
		typedRefs := make([]ActorRef[M, R], 0, len(baseRefs))
		for _, baseRef := range baseRefs {
			// Assert from BaseActorRef to the specific ActorRef[M, R]
			// type. This type assertion provides type safety, ensuring
			// that the returned ActorRefs match the expected M and R.
			if typedRef, ok := baseRef.(ActorRef[M, R]); ok {
				typedRefs = append(typedRefs, typedRef)
			}
		}
		return typedRefs
	}

	return nil
}

// activeSystemMsg is the internal control-channel message ActiveActorSystem
// uses to hand a Drain/Stop request from whatever goroutine called it over
// to the goroutine running Join.
type activeSystemMsg int

const (
	activeSystemDrain activeSystemMsg = iota
	activeSystemStop
)

// ActiveActorSystem wraps an ActorSystem that also has its timer and
// watcher system actors running, and drives the top-level control loop: it
// turns a configured POSIX shutdown signal or a direct Drain/Stop call into
// a request the watcher processes, and returns once that request has been
// fully honored (every tracked actor has terminated).
type ActiveActorSystem struct {
	System *ActorSystem

	sigCh    chan os.Signal
	ctl      chan activeSystemMsg
	done     chan struct{}
	doneOnce sync.Once
}

// StartSystem creates an ActorSystem with config, starts its timer and
// watcher system actors, and wires POSIX signal handling for
// config.PosixSignals. This is the entry point a typical main() uses; bare
// NewActorSystem/NewActorSystemWithConfig is for tests and components that
// only need RegisterWithSystem plus an explicit Shutdown.
func StartSystem(config SystemConfig) *ActiveActorSystem {
	sys := NewActorSystemWithConfig(config)

	interval := time.Duration(config.TickerIntervalMS) * time.Millisecond
	sys.timerRef = StartTimer(sys, interval)
	sys.watcherRef = StartWatcher(sys)

	active := &ActiveActorSystem{
		System: sys,
		ctl:    make(chan activeSystemMsg, 1),
		done:   make(chan struct{}),
	}

	if len(config.PosixSignals) > 0 {
		active.sigCh = make(chan os.Signal, len(config.PosixSignals))

		sigs := make([]os.Signal, len(config.PosixSignals))
		for i, s := range config.PosixSignals {
			sigs[i] = syscall.Signal(s)
		}
		signal.Notify(active.sigCh, sigs...)
	}

	return active
}

// Drain requests a graceful shutdown: every tracked actor is left to finish
// whatever it's doing and stop on its own; nothing is forced to stop.
func (a *ActiveActorSystem) Drain() {
	select {
	case a.ctl <- activeSystemDrain:
	default:
	}
}

// Stop requests an immediate shutdown: every tracked actor is Stop()ped.
func (a *ActiveActorSystem) Stop() {
	select {
	case a.ctl <- activeSystemStop:
	default:
	}
}

// Join takes over the calling goroutine, processing signals and Drain/Stop
// requests, until the watcher reports every tracked actor has terminated.
// For most applications this is the final call in main. Ported from the
// original draft's join loop: a select over pending signals and a control
// channel, here expressed natively as a Go select instead of a 100ms poll.
func (a *ActiveActorSystem) Join() {
	for {
		select {
		case sig := <-a.sigCh:
			s := int(sig.(syscall.Signal)) //nolint:forcetypeassert
			if a.System.watcherRef != nil {
				a.System.watcherRef.Tell(context.Background(),
					ReceivedPosixSignal{Signal: s})
			}

			if containsInt(a.System.config.PosixShutdownSignals, s) {
				a.requestDrain()
			}

		case m := <-a.ctl:
			switch m {
			case activeSystemDrain:
				a.requestDrain()
			case activeSystemStop:
				a.requestStop()
			}

		case <-a.done:
			return
		}
	}
}

// requestDrain asks the watcher to report back once every tracked actor has
// stopped on its own.
func (a *ActiveActorSystem) requestDrain() {
	if a.System.watcherRef == nil {
		a.finish()
		return
	}

	a.System.watcherRef.Tell(context.Background(), DrainSystem{
		Done: a.finish,
	})
}

// requestStop asks the watcher to Stop() every tracked actor and report
// back once they've all terminated.
func (a *ActiveActorSystem) requestStop() {
	if a.System.watcherRef == nil {
		a.finish()
		return
	}

	a.System.watcherRef.Tell(context.Background(), StopSystem{
		Done: a.finish,
	})
}

// finish stops the timer (a special case: it has its own background
// goroutine) and closes done, unblocking Join. Safe to call more than once;
// only the first call has any effect.
func (a *ActiveActorSystem) finish() {
	a.doneOnce.Do(func() {
		if a.System.timerRef != nil {
			a.System.StopAndRemoveActor("system-timer")
		}
		close(a.done)
	})
}

// Spawn registers an actor against the active system under a service key
// named after id, so callers need not build a ServiceKey themselves. Like
// any RegisterWithSystem actor, it is registered with the receptionist.
func (a *ActiveActorSystem) Spawn(id string, behavior ActorBehavior[Message, any]) ActorRef[Message, any] {
	key := NewServiceKey[Message, any](id)
	return RegisterWithSystem(a.System, id, key, behavior)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
