package stream

import "context"

// composite fuses two adjacent stages into one Stage[In, Out], hiding the
// internal Mid-typed handshake between them. Via folds a Source through a
// chain of Flows by composing one Flow at a time, so an N-stage pipeline is
// N-1 nested composites; each composite only ever pumps its own two
// immediate neighbours, which keeps the trampoline loop below flat and
// bounded regardless of how many elements a stage like Filter discards
// before producing one Push.
//
// Per spec note on trampolined execution: the source's Bounce<Completed>
// recursion-avoidance is played here by the for loop in pump, not by a
// shared explicit stack across the whole pipeline — acceptable because
// pipeline depth (stage count) is small and fixed at construction time; it
// is the per-Pulled work (which can iterate arbitrarily many discarded
// elements) that must not recurse, and pump is iterative.
type composite[In, Mid, Out any] struct {
	up   Stage[In, Mid]
	down Stage[Mid, Out]

	upDone   bool
	upErr    error
	finished bool
	finalAct Action[Out]
}

func composeStage[In, Mid, Out any](up Stage[In, Mid], down Stage[Mid, Out]) Stage[In, Out] {
	return &composite[In, Mid, Out]{up: up, down: down}
}

func (c *composite[In, Mid, Out]) Name() string {
	return c.up.Name() + "->" + c.down.Name()
}

// Close propagates teardown to both fused neighbours, in case either (or
// both) wrap a Detached boundary's background resources.
func (c *composite[In, Mid, Out]) Close() {
	closeStage(c.up)
	closeStage(c.down)
}

func (c *composite[In, Mid, Out]) Receive(ctx context.Context, ev Event[In]) Action[Out] {
	if c.finished {
		return c.finalAct
	}

	switch ev.Kind {
	case EventStarted:
		c.up.Receive(ctx, Started[In]())
		c.down.Receive(ctx, Started[Mid]())
		return None[Out]()

	case EventPushed:
		upAct := c.up.Receive(ctx, Pushed[In](ev.Value))
		return c.pump(ctx, upAct)

	case EventPulled:
		downAct := c.down.Receive(ctx, Pulled[Mid]())
		return c.drive(ctx, downAct)

	case EventCancelled:
		c.down.Receive(ctx, Cancelled[Mid]())
		c.up.Receive(ctx, Cancelled[In]())
		return c.settle(Cancel[Out]())

	case EventStopped:
		c.up.Receive(ctx, Stopped[In]())
		return c.pumpStop(ctx)

	default:
		return None[Out]()
	}
}

// drive interprets the action down produced in direct response to a Pulled
// event: Push/Complete/Cancel are already final (down's own Out-typed
// answer); only Pull means down wants an element from up before it can
// answer, which pump then supplies.
func (c *composite[In, Mid, Out]) drive(ctx context.Context, downAct Action[Out]) Action[Out] {
	switch downAct.Kind {
	case ActionPull:
		if c.upDone {
			return c.pumpStop(ctx)
		}
		upAct := c.up.Receive(ctx, Pulled[In]())
		return c.pump(ctx, upAct)

	case ActionComplete, ActionCancel:
		c.up.Receive(ctx, Cancelled[In]())
		return c.settle(downAct)

	default:
		return downAct
	}
}

// pump feeds an element (or completion) up just produced into down, looping
// until down gives a definitive Push/Complete/Cancel — e.g. Filter dropping
// several elements in a row before one survives.
func (c *composite[In, Mid, Out]) pump(ctx context.Context, upAct Action[Mid]) Action[Out] {
	for {
		switch upAct.Kind {
		case ActionPush:
			downAct := c.down.Receive(ctx, Pushed[Mid](upAct.Value))
			switch downAct.Kind {
			case ActionPull:
				if c.upDone {
					return c.pumpStop(ctx)
				}
				upAct = c.up.Receive(ctx, Pulled[In]())
				continue
			case ActionComplete, ActionCancel:
				c.up.Receive(ctx, Cancelled[In]())
				return c.settle(downAct)
			default:
				return downAct
			}

		case ActionComplete:
			c.upDone = true
			c.upErr = upAct.Err
			return c.pumpStop(ctx)

		case ActionCancel:
			c.upDone = true
			return c.settle(Cancel[Out]())

		default:
			return None[Out]()
		}
	}
}

// pumpStop delivers Stopped to down once up has signalled completion, and
// returns whatever down answers (draining any buffered element first, per
// the completion-ordering invariant).
func (c *composite[In, Mid, Out]) pumpStop(ctx context.Context) Action[Out] {
	downAct := c.down.Receive(ctx, Stopped[Mid]())
	switch downAct.Kind {
	case ActionComplete:
		err := downAct.Err
		if err == nil {
			err = c.upErr
		}
		return c.settle(Complete[Out](err))
	case ActionPush:
		return downAct
	default:
		return c.settle(Complete[Out](c.upErr))
	}
}

func (c *composite[In, Mid, Out]) settle(act Action[Out]) Action[Out] {
	if act.Kind == ActionComplete || act.Kind == ActionCancel {
		c.finished = true
		c.finalAct = act
	}
	return act
}
