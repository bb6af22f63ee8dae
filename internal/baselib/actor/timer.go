package actor

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/loomrt/loom/internal/baselib/timer"
)

// TimerMessage is the sealed set of messages the Timer system actor
// understands.
type TimerMessage interface {
	Message

	timerMarker()
}

type baseTimerMessage struct{ BaseMessage }

func (baseTimerMessage) timerMarker() {}

// ScheduleOnce asks the timer to invoke Thunk once, after After has
// elapsed. The thunk runs on whatever dispatcher worker is driving the
// timer actor's cell at the time it fires, so it should be quick and
// non-blocking, mirroring the restriction on any actor's Receive.
type ScheduleOnce struct {
	baseTimerMessage

	After time.Duration
	Thunk func()
}

// MessageType identifies this message for routing/logging.
func (ScheduleOnce) MessageType() string { return "timer.ScheduleOnce" }

// SchedulePeriodic asks the timer to invoke Thunk every Period, starting
// after the first period elapses.
type SchedulePeriodic struct {
	baseTimerMessage

	Period time.Duration
	Thunk  func()
}

// MessageType identifies this message for routing/logging.
func (SchedulePeriodic) MessageType() string { return "timer.SchedulePeriodic" }

// CancelTimer best-effort cancels a previously scheduled entry, identified
// by the handle returned from ScheduleOnce/SchedulePeriodic's Ask response.
type CancelTimer struct {
	baseTimerMessage

	ID timer.EntryID
}

// MessageType identifies this message for routing/logging.
func (CancelTimer) MessageType() string { return "timer.CancelTimer" }

// tick is the internal message the background goroutine sends to itself
// (via Tell) once per tick interval, driving Wheel.Advance.
type tick struct{ baseTimerMessage }

// MessageType identifies this message for routing/logging.
func (tick) MessageType() string { return "timer.tick" }

// Timer is the system actor wrapping a hashed wheel timer: scheduling goes
// through Tell/Ask like any other interaction, rather than exposing the
// wheel directly, so the wheel's single-threaded invariant (Advance/
// Schedule never called concurrently) is enforced by the actor cell rather
// than by the wheel's own locking alone.
type Timer struct {
	wheel    *timer.Wheel
	cancelBg context.CancelFunc
}

// NewTimer creates a Timer actor behavior ticking every interval.
func NewTimer(interval time.Duration) *Timer {
	return &Timer{wheel: timer.New(interval, 0)}
}

// OnStop implements Stoppable: it cancels the background ticker goroutine
// so it stops calling Tell on a cell that will no longer process anything.
func (t *Timer) OnStop(ctx context.Context) error {
	if t.cancelBg != nil {
		t.cancelBg()
	}
	return nil
}

// Receive implements ActorBehavior[TimerMessage, timer.EntryID].
func (t *Timer) Receive(ctx context.Context, msg TimerMessage) fn.Result[timer.EntryID] {
	switch m := msg.(type) {
	case ScheduleOnce:
		return fn.Ok(t.wheel.Schedule(m.After, m.Thunk))

	case SchedulePeriodic:
		return fn.Ok(t.wheel.SchedulePeriodic(m.Period, m.Thunk))

	case CancelTimer:
		t.wheel.Cancel(m.ID)
		return fn.Ok(m.ID)

	case tick:
		for _, thunk := range t.wheel.Advance() {
			thunk()
		}
		return fn.Ok(timer.EntryID(0))

	default:
		return fn.Ok(timer.EntryID(0))
	}
}

// runTicker starts the background goroutine that sends this actor its own
// tick messages every TickDuration, until ctx is cancelled. This is the
// "background thread sleeps until the next tick and sends a Tick message to
// the timer actor" behavior; the actor cell stays single-threaded because
// the background goroutine only ever calls Tell, never touches the wheel
// directly.
func runTicker(ctx context.Context, self TellOnlyRef[TimerMessage], interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				self.Tell(ctx, tick{})

			case <-ctx.Done():
				return
			}
		}
	}()
}

// StartTimer spawns the Timer system actor on sys's system shard and starts
// its background ticker goroutine, returning a ref for scheduling. The
// ticker goroutine is cancelled by Timer.OnStop when the actor stops.
func StartTimer(sys *ActorSystem, interval time.Duration) ActorRef[TimerMessage, timer.EntryID] {
	behavior := NewTimer(interval)
	tickerCtx, cancel := context.WithCancel(context.Background())
	behavior.cancelBg = cancel

	cfg := ActorConfig[TimerMessage, timer.EntryID]{
		ID:       "system-timer",
		Behavior: behavior,
		DLO:      sys.DeadLetters(),
		Shard:    sys.systemShard,
		Wg:       &sys.actorWg,
	}
	rawActor := NewActor(cfg)
	rawActor.Start()

	runTicker(tickerCtx, rawActor.Ref(), interval)

	sys.mu.Lock()
	sys.actors[rawActor.id] = rawActor
	sys.mu.Unlock()

	return rawActor.Ref()
}
