package gotrue

import (
	"sync"
	"sync/atomic"
)

// Listener receives auth state changes. It runs on the goroutine that caused
// the change and may be entered concurrently when changes race.
type Listener func(Event)

// Subscription is returned by OnAuthStateChange.
type Subscription struct {
	id      uint64
	active  atomic.Bool
	fn      Listener
	emitter *Emitter
}

// Unsubscribe stops further deliveries. Safe to call more than once; a
// delivery already running on another goroutine is not interrupted.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	s.emitter.remove(s.id)
}

func (s *Subscription) deliver(ev Event) {
	if s.active.Load() {
		s.fn(ev)
	}
}

// Emitter is the listener registry behind Client. It is exported so code
// that consumes auth events can be driven without an auth server.
type Emitter struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
}

func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[uint64]*Subscription)}
}

// OnAuthStateChange registers fn for every subsequent Emit.
func (e *Emitter) OnAuthStateChange(fn Listener) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	sub := &Subscription{id: e.nextID, fn: fn, emitter: e}
	sub.active.Store(true)
	e.subs[sub.id] = sub
	return sub
}

// Len reports the number of registered listeners.
func (e *Emitter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Emit calls every active listener in turn, outside the lock, so a listener
// may subscribe or unsubscribe from inside its callback.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	snapshot := make([]*Subscription, 0, len(e.subs))
	for _, s := range e.subs {
		snapshot = append(snapshot, s)
	}
	e.mu.Unlock()

	for _, s := range snapshot {
		s.deliver(ev)
	}
}

func (e *Emitter) remove(id uint64) {
	e.mu.Lock()
	delete(e.subs, id)
	e.mu.Unlock()
}
