package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/auth"
)

func TestResetOnSignOut(t *testing.T) {
	t.Parallel()

	t.Run("keeps resetting after the observer lags", func(t *testing.T) {
		t.Parallel()

		sessions := auth.NewSessionStore(1)
		t.Cleanup(func() { _ = sessions.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		release := make(chan struct{})
		var calls atomic.Int32
		reset := func() {
			if calls.Add(1) == 1 {
				<-release
			}
		}

		done := make(chan struct{})
		go func() {
			resetOnSignOut(ctx, sessions, logger.Discard(), reset)
			close(done)
		}()

		require.Eventually(t, func() bool {
			sessions.Clear()
			return calls.Load() >= 1
		}, time.Second, 5*time.Millisecond)

		// The first reset is still running, so these overflow the buffer
		// and the observer is dropped.
		sessions.Publish(auth.Session{UserID: "u1"})
		sessions.Clear()
		sessions.Publish(auth.Session{UserID: "u1"})
		sessions.Clear()
		close(release)

		require.Eventually(t, func() bool {
			sessions.Publish(auth.Session{UserID: "u2"})
			sessions.Clear()
			return calls.Load() >= 4
		}, time.Second, 5*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("watcher did not stop with its context")
		}
	})

	t.Run("stops when the store closes", func(t *testing.T) {
		t.Parallel()

		sessions := auth.NewSessionStore(1)
		done := make(chan struct{})
		go func() {
			resetOnSignOut(context.Background(), sessions, logger.Discard())
			close(done)
		}()

		require.NoError(t, sessions.Close())
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("watcher did not stop with the store")
		}
	})
}
