package actor

import (
	"context"
	"sync"
)

// Watchable is implemented by actor cells that can be watched: a watcher
// registers a TellOnlyRef[Terminated] and is sent exactly one Terminated
// signal once the watched cell fully stops. Watchers that want their own
// message type instead of Terminated directly should wrap their ref with
// NewMapInputRef[Terminated, TheirType] before passing it to Watch.
type Watchable interface {
	addWatcher(ref TellOnlyRef[Terminated])
}

// watcherSet is an embeddable helper managing a cell's registered watchers
// and notifying them exactly once at termination.
type watcherSet struct {
	mu         sync.Mutex
	watchers   []TellOnlyRef[Terminated]
	notified   bool
	terminated Terminated
}

func (w *watcherSet) add(ref TellOnlyRef[Terminated]) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.notified {
		// Already terminated; notify immediately so a late watcher
		// doesn't wait forever for an event that already happened.
		// Carry the same ActorID notifyAll already sent to every other
		// watcher, so a late watcher can tell which target stopped.
		ref.Tell(context.Background(), w.terminated)
		return
	}

	w.watchers = append(w.watchers, ref)
}

// notifyAll delivers Terminated to every registered watcher exactly once,
// even if called more than once (only the first call has any effect).
func (w *watcherSet) notifyAll(actorID string) {
	w.mu.Lock()
	if w.notified {
		w.mu.Unlock()
		return
	}
	w.notified = true
	w.terminated = Terminated{ActorID: actorID}
	watchers := w.watchers
	w.watchers = nil
	sig := w.terminated
	w.mu.Unlock()

	for _, ref := range watchers {
		ref.Tell(context.Background(), sig)
	}
}

// Watch registers watcher to be notified with a Terminated signal once
// target stops. If target has already stopped, watcher is notified
// immediately. This is the actor-context watch capability described for
// ctx.watch(target, map_fn): callers that want a custom message instead of
// Terminated pass NewMapInputRef(watcher, mapFn) as watcher.
func Watch(target Watchable, watcher TellOnlyRef[Terminated]) {
	target.addWatcher(watcher)
}
