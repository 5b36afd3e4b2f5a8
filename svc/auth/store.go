package auth

import (
	"context"
	"sync/atomic"

	"github.com/dmitrymomot/fittrack/pkg/broadcast"
)

// SessionPublisher is the write side of the session cell.
type SessionPublisher interface {
	Publish(s Session)
	Clear()
}

// SessionReader is the read side used by guards and views.
type SessionReader interface {
	Snapshot() *Session
}

// SessionStore is the single process-wide session cell. Every write is one
// atomic pointer swap followed by a broadcast of the new value (nil when
// signed out) to observers.
type SessionStore struct {
	cur    atomic.Pointer[Session]
	bc     *broadcast.Memory[*Session]
	closed atomic.Bool
}

// NewSessionStore creates an empty store. bufferSize bounds how many
// unread changes an observer may lag before it is dropped.
func NewSessionStore(bufferSize int) *SessionStore {
	return &SessionStore{bc: broadcast.NewMemory[*Session](bufferSize)}
}

// Publish replaces the session. IsAuthenticated is forced to true.
func (s *SessionStore) Publish(sess Session) {
	sess.IsAuthenticated = true
	s.cur.Store(&sess)
	s.bc.Broadcast(&sess)
}

func (s *SessionStore) Clear() {
	s.cur.Store(nil)
	s.bc.Broadcast(nil)
}

// Update applies fn to a copy of the current session and publishes it, but
// only while the stored session belongs to userID. It reports whether the
// update was applied.
func (s *SessionStore) Update(userID string, fn func(*Session)) bool {
	for {
		old := s.cur.Load()
		if old == nil || old.UserID != userID {
			return false
		}
		next := *old
		fn(&next)
		next.UserID = old.UserID
		next.IsAuthenticated = true
		if s.cur.CompareAndSwap(old, &next) {
			s.bc.Broadcast(&next)
			return true
		}
	}
}

// Snapshot returns a copy of the current session, or nil when signed out.
func (s *SessionStore) Snapshot() *Session {
	cur := s.cur.Load()
	if cur == nil {
		return nil
	}
	cp := *cur
	return &cp
}

func (s *SessionStore) IsAuthenticated() bool {
	cur := s.cur.Load()
	return cur != nil && cur.IsAuthenticated
}

// Subscribe observes every subsequent change until ctx is done or the
// subscriber is closed. Received pointers must not be modified.
func (s *SessionStore) Subscribe(ctx context.Context) broadcast.Subscriber[*Session] {
	return s.bc.Subscribe(ctx)
}

// Closed reports whether Close was called. Subscriptions taken after that
// end immediately.
func (s *SessionStore) Closed() bool {
	return s.closed.Load()
}

// Close ends all subscriptions.
func (s *SessionStore) Close() error {
	s.closed.Store(true)
	return s.bc.Close()
}
