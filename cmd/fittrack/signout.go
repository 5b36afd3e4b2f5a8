package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/fittrack/svc/auth"
)

// resetOnSignOut forgets the signed-out user's data held in memory. It
// resubscribes when the store drops it for lagging, and resets once more if
// the session is gone by then, since the sign-out may have been among the
// missed changes.
func resetOnSignOut(ctx context.Context, sessions *auth.SessionStore, log *slog.Logger, resets ...func()) {
	reset := func() {
		for _, r := range resets {
			r()
		}
		log.DebugContext(ctx, "in-memory stores reset after sign-out")
	}

	for ctx.Err() == nil && !sessions.Closed() {
		sub := sessions.Subscribe(ctx)
		for sess := range sub.C() {
			if sess == nil {
				reset()
			}
		}
		_ = sub.Close()

		if ctx.Err() != nil || sessions.Closed() {
			return
		}
		log.DebugContext(ctx, "session observer lagged, resubscribing")
		if sessions.Snapshot() == nil {
			reset()
		}
	}
}
