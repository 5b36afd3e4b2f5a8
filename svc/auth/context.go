package auth

import "context"

type sessionContextKey struct{}

// WithSession attaches the session snapshot a guard evaluated against.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

// CurrentSession returns a copy of the session stored by WithSession, or the
// zero Session for anonymous requests.
func CurrentSession(ctx context.Context) Session {
	if s := SessionFromContext(ctx); s != nil {
		return *s
	}
	return Session{}
}
