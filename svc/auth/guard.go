package auth

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/logger"
)

const (
	DefaultLoginPath = "/login"
	DefaultHomePath  = "/dashboard"
)

// GuardKind selects which authentication state a route requires.
type GuardKind int

const (
	// GuardProtected requires a signed-in user.
	GuardProtected GuardKind = iota + 1
	// GuardPublic requires that nobody is signed in (login, register).
	GuardPublic
)

func (k GuardKind) String() string {
	switch k {
	case GuardProtected:
		return "protected"
	case GuardPublic:
		return "public"
	default:
		return "unknown"
	}
}

// ParseGuardKind is the inverse of GuardKind.String.
func ParseGuardKind(s string) (GuardKind, bool) {
	switch s {
	case "protected":
		return GuardProtected, true
	case "public":
		return GuardPublic, true
	default:
		return 0, false
	}
}

type GuardOption func(*guardConfig)

type guardConfig struct {
	loginPath string
	homePath  string
	log       *slog.Logger
}

func WithLoginPath(p string) GuardOption {
	return func(c *guardConfig) { c.loginPath = p }
}

func WithHomePath(p string) GuardOption {
	return func(c *guardConfig) { c.homePath = p }
}

func WithGuardLogger(l *slog.Logger) GuardOption {
	return func(c *guardConfig) { c.log = l }
}

func newGuardConfig(opts []GuardOption) guardConfig {
	cfg := guardConfig{loginPath: DefaultLoginPath, homePath: DefaultHomePath}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.log = logger.OrDefault(cfg.log)
	return cfg
}

func (c guardConfig) decide(kind GuardKind, authenticated bool) (string, bool) {
	switch kind {
	case GuardProtected:
		if !authenticated {
			return c.loginPath, false
		}
	case GuardPublic:
		if authenticated {
			return c.homePath, false
		}
	}
	return "", true
}

// Decide reports whether a route of the given kind may be shown, and where
// to go instead when it may not. It uses the default paths.
func Decide(kind GuardKind, authenticated bool) (redirectTo string, allow bool) {
	return newGuardConfig(nil).decide(kind, authenticated)
}

// Protected lets only signed-in requests through; others are redirected to
// the login page without leaving the guarded URL in history.
func Protected(store SessionReader, opts ...GuardOption) func(http.Handler) http.Handler {
	return guard(GuardProtected, store, newGuardConfig(opts))
}

// Public lets only anonymous requests through; signed-in users are sent to
// the home page.
func Public(store SessionReader, opts ...GuardOption) func(http.Handler) http.Handler {
	return guard(GuardPublic, store, newGuardConfig(opts))
}

func guard(kind GuardKind, store SessionReader, cfg guardConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := store.Snapshot()
			authenticated := sess != nil && sess.IsAuthenticated

			if to, ok := cfg.decide(kind, authenticated); !ok {
				if err := handler.WriteRedirect(w, r, to, true); err != nil {
					cfg.log.ErrorContext(r.Context(), "guard redirect failed",
						logger.Path(r.URL.Path), logger.Error(err))
				}
				return
			}

			if sess != nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}
