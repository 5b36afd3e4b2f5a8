package auth

import (
	"strings"

	"github.com/dmitrymomot/fittrack/pkg/gotrue"
	"github.com/dmitrymomot/fittrack/svc/units"
)

const fallbackDisplayName = "User"

// Session is the signed-in user as the rest of the app sees it. Values held
// by the store are never mutated; changes publish a new value.
type Session struct {
	UserID          string
	Email           string
	DisplayName     string
	AvatarURL       string
	WeightUnit      units.Unit
	IsAuthenticated bool
}

// SessionFromUser derives a Session from an identity provider user. The
// display name falls back to the email local part and then to "User"; the
// weight unit is always the default until the profile row is read.
func SessionFromUser(u *gotrue.User) Session {
	s := Session{
		UserID:          u.ID,
		Email:           u.Email,
		DisplayName:     displayName(u),
		WeightUnit:      units.Default,
		IsAuthenticated: true,
	}
	if avatar, ok := u.MetadataString("avatar_url"); ok {
		s.AvatarURL = avatar
	}
	return s
}

func displayName(u *gotrue.User) string {
	if name, ok := u.MetadataString("name"); ok {
		return name
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return fallbackDisplayName
}

// Initial is the first letter of the display name, for avatar placeholders.
func (s Session) Initial() string {
	for _, r := range s.DisplayName {
		return strings.ToUpper(string(r))
	}
	return "U"
}
