package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Subscribe(t *testing.T) {
	t.Run("subscriber receives broadcast", func(t *testing.T) {
		b := NewMemory[string](4)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		b.Broadcast("hello")

		select {
		case v := <-sub.C():
			assert.Equal(t, "hello", v)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	})

	t.Run("after close returns closed subscriber", func(t *testing.T) {
		b := NewMemory[string](4)
		require.NoError(t, b.Close())

		sub := b.Subscribe(context.Background())
		_, ok := <-sub.C()
		assert.False(t, ok)
	})

	t.Run("context cancellation removes subscriber", func(t *testing.T) {
		b := NewMemory[string](4)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)
		assert.Equal(t, 1, b.Len())

		cancel()
		require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

		_, ok := <-sub.C()
		assert.False(t, ok)
	})
}

func TestMemory_SubscriberWatchersExit(t *testing.T) {
	b := NewMemory[int](1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for range 50 {
		_ = b.Subscribe(ctx).Close()
	}
	require.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

	// Lagging subscribers are dropped by Broadcast and must not keep a
	// watcher waiting on ctx either.
	for range 50 {
		b.Subscribe(ctx)
	}
	b.Broadcast(1)
	b.Broadcast(2)
	assert.Equal(t, 0, b.Len())

	closed := make(chan struct{})
	go func() {
		_ = b.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close waited on watchers of finished subscribers")
	}
}

func TestMemory_Broadcast(t *testing.T) {
	t.Run("slow subscriber is dropped", func(t *testing.T) {
		b := NewMemory[int](1)
		defer b.Close()

		slow := b.Subscribe(context.Background())
		b.Broadcast(1)
		b.Broadcast(2)

		assert.Equal(t, 0, b.Len())
		v, ok := <-slow.C()
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = <-slow.C()
		assert.False(t, ok)
	})

	t.Run("closed subscriber is removed", func(t *testing.T) {
		b := NewMemory[int](1)
		defer b.Close()

		sub := b.Subscribe(context.Background())
		require.NoError(t, sub.Close())
		require.NoError(t, sub.Close())

		b.Broadcast(1)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("concurrent broadcasts do not block", func(t *testing.T) {
		b := NewMemory[int](8)
		defer b.Close()

		_ = b.Subscribe(context.Background())

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Broadcast(i)
			}()
		}
		wg.Wait()
	})

	t.Run("broadcast after close is ignored", func(t *testing.T) {
		b := NewMemory[int](1)
		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
		b.Broadcast(1)
		assert.Equal(t, 0, b.Len())
	})
}
