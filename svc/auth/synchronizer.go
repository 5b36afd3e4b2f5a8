package auth

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/fittrack/pkg/gotrue"
	"github.com/dmitrymomot/fittrack/pkg/logger"
)

// EventSource is the identity provider event stream. *gotrue.Client and
// *gotrue.Emitter satisfy it.
type EventSource interface {
	OnAuthStateChange(fn gotrue.Listener) *gotrue.Subscription
}

// Synchronizer keeps the session store in line with identity provider
// events. At most one event is processed at a time: an event that arrives
// while another is being handled is dropped, not queued.
type Synchronizer struct {
	source EventSource
	store  SessionPublisher
	log    *slog.Logger

	processing atomic.Bool
	detached   atomic.Bool

	mu   sync.Mutex
	stop func()
}

func NewSynchronizer(source EventSource, store SessionPublisher, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		source: source,
		store:  store,
		log:    logger.OrDefault(log).With(logger.Component("auth.synchronizer")),
	}
}

// Start registers the event listener and returns the function that removes
// it. While started, a second Start returns the same stop function. Stop is
// idempotent; once it runs, a handler that is already in flight skips its
// store write.
func (s *Synchronizer) Start() (stop func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return s.stop
	}

	s.detached.Store(false)
	sub := s.source.OnAuthStateChange(s.Handle)

	var once sync.Once
	s.stop = func() {
		once.Do(func() {
			s.detached.Store(true)
			sub.Unsubscribe()

			s.mu.Lock()
			s.stop = nil
			s.mu.Unlock()
		})
	}
	return s.stop
}

// Handle applies one event to the store. It is the registered listener and
// may be called from several goroutines at once.
func (s *Synchronizer) Handle(ev gotrue.Event) {
	switch ev.Kind {
	case gotrue.InitialSession, gotrue.SignedIn, gotrue.SignedOut:
	default:
		return
	}

	if !s.processing.CompareAndSwap(false, true) {
		s.log.Debug("auth event dropped, another is in flight", logger.Event(string(ev.Kind)))
		return
	}
	defer s.processing.Store(false)

	if s.detached.Load() {
		return
	}

	if ev.Kind == gotrue.SignedOut {
		s.store.Clear()
		s.log.Debug("session cleared")
		return
	}

	if ev.Session == nil || ev.Session.User == nil {
		return
	}
	sess := SessionFromUser(ev.Session.User)
	s.store.Publish(sess)
	s.log.Debug("session published", logger.UserID(sess.UserID), logger.Event(string(ev.Kind)))
}
