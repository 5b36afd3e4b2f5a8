package gotrue

import (
	"strings"
	"time"
)

// User is the identity record returned by the auth server.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitzero"`
}

// MetadataString returns user_metadata[key] when it is a non-blank string.
func (u *User) MetadataString(key string) (string, bool) {
	if u == nil || u.UserMetadata == nil {
		return "", false
	}
	s, ok := u.UserMetadata[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Session is an authenticated identity plus its tokens.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user"`
}

// Expiry returns the access token expiry, or the zero time when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the token expires before now+d.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	exp := s.Expiry()
	return !exp.IsZero() && !exp.After(now.Add(d))
}

// EventKind names an auth state change.
type EventKind string

const (
	InitialSession   EventKind = "INITIAL_SESSION"
	SignedIn         EventKind = "SIGNED_IN"
	SignedOut        EventKind = "SIGNED_OUT"
	TokenRefreshed   EventKind = "TOKEN_REFRESHED"
	UserUpdated      EventKind = "USER_UPDATED"
	PasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// Event is delivered to OnAuthStateChange listeners. Session may be nil.
type Event struct {
	Kind    EventKind
	Session *Session
}
