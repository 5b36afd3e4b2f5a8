// Package broadcast fans values out to many in-process subscribers without
// ever blocking the publisher. Subscribers whose buffer is full miss the
// message and are dropped; they are expected to resubscribe and re-read
// whatever state the message described.
package broadcast

import (
	"context"
	"sync"
)

// Subscriber receives broadcast values.
type Subscriber[T any] interface {
	// C returns the receive channel. It is closed when the subscription ends.
	C() <-chan T
	// Close ends the subscription. Safe to call more than once.
	Close() error
}

type subscriber[T any] struct {
	ch     chan T
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func newSubscriber[T any](size int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, size), done: make(chan struct{})}
}

func (s *subscriber[T]) C() <-chan T { return s.ch }

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.done)
	}
	return nil
}

func (s *subscriber[T]) send(v T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// Memory is an in-process broadcaster. All methods are safe for concurrent use.
type Memory[T any] struct {
	mu     sync.RWMutex
	subs   map[*subscriber[T]]struct{}
	size   int
	closed bool
	wg     sync.WaitGroup
}

// NewMemory creates a broadcaster whose subscribers buffer up to size values.
// Sizes below 1 are raised to 1.
func NewMemory[T any](size int) *Memory[T] {
	return &Memory[T]{
		subs: make(map[*subscriber[T]]struct{}),
		size: max(size, 1),
	}
}

// Subscribe registers a subscriber that lives until ctx is done or Close is
// called on it. After the broadcaster is closed it returns a closed subscriber.
func (b *Memory[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := newSubscriber[T](b.size)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		_ = sub.Close()
		return sub
	}
	b.subs[sub] = struct{}{}

	if done := ctx.Done(); done != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			select {
			case <-done:
			case <-sub.done:
			}
			b.remove(sub)
		}()
	}
	return sub
}

// Broadcast delivers v to every subscriber with room in its buffer.
// Subscribers that are full or closed are removed.
func (b *Memory[T]) Broadcast(v T) {
	b.mu.RLock()
	var stale []*subscriber[T]
	if !b.closed {
		for sub := range b.subs {
			if !sub.send(v) {
				stale = append(stale, sub)
			}
		}
	}
	b.mu.RUnlock()

	for _, sub := range stale {
		b.remove(sub)
	}
}

// Len reports the number of active subscribers.
func (b *Memory[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber. Further broadcasts are ignored.
func (b *Memory[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		_ = sub.Close()
	}
	clear(b.subs)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

func (b *Memory[T]) remove(sub *subscriber[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	_ = sub.Close()
}
