package auth

import (
	"net/http"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/logger"
)

// Observers reports how many stream subscribers are attached.
func (s *SessionStore) Observers() int {
	return s.bc.Len()
}

// SessionStream serves GET /session/stream?guard=public|protected. The page
// opens it on load; the connection stays idle until the session changes in
// a way the page's guard no longer allows, then it pushes a history-replacing
// redirect and ends.
func SessionStream(store *SessionStore, opts ...GuardOption) http.HandlerFunc {
	cfg := newGuardConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := ParseGuardKind(r.URL.Query().Get("guard"))
		if !ok {
			http.Error(w, "unknown guard", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		sse := handler.NewSSE(w, r)

		redirect := func(s *Session) bool {
			to, allow := cfg.decide(kind, s != nil && s.IsAuthenticated)
			if allow {
				return false
			}
			if err := sse.ExecuteScript(handler.ReplaceLocationScript(to)); err != nil {
				cfg.log.WarnContext(ctx, "session stream write failed", logger.Error(err))
			}
			return true
		}

		for ctx.Err() == nil && !store.Closed() {
			sub := store.Subscribe(ctx)
			// The page may have been rendered before a change that landed
			// ahead of this subscription.
			if redirect(store.Snapshot()) {
				_ = sub.Close()
				return
			}

			for s := range sub.C() {
				if redirect(s) {
					_ = sub.Close()
					return
				}
			}
			// Channel closed: either ctx is done or this observer lagged and
			// was dropped. Resubscribe and re-read the snapshot.
			_ = sub.Close()
		}
	}
}
