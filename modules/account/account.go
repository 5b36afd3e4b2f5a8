// Package account serves sign-in, registration, sign-out and the session
// stream pages use to follow auth changes.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/binder"
	"github.com/dmitrymomot/fittrack/pkg/clientip"
	"github.com/dmitrymomot/fittrack/pkg/gotrue"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/pkg/ratelimiter"
	"github.com/dmitrymomot/fittrack/pkg/validator"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/profile"
	"github.com/dmitrymomot/fittrack/views"
)

const registeredMessage = "Registration successful! Please check your email to verify your account."

// Authenticator is the identity provider client.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*gotrue.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.SignUpResult, error)
	SignOut(ctx context.Context) error
}

// Profiles creates and reads the users row behind an account.
type Profiles interface {
	CreateForSignUp(ctx context.Context, userID, email, name string) (profile.Profile, error)
	Sync(ctx context.Context, userID string) (profile.Profile, error)
}

// Limiter throttles sign-in attempts per client address.
// *ratelimiter.Bucket implements it.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimiter.Result, error)
	Reset(ctx context.Context, key string) error
}

type Option func(*Service)

// WithSignInLimiter throttles POST /login per client address.
func WithSignInLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

type Service struct {
	limiter      Limiter
	now          func() time.Time
	auth         Authenticator
	profiles     Profiles
	sessions     *auth.SessionStore
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(
	authn Authenticator,
	profiles Profiles,
	sessions *auth.SessionStore,
	errorHandler handler.ErrorHandler[handler.Context],
	log *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		auth:         authn,
		profiles:     profiles,
		sessions:     sessions,
		errorHandler: errorHandler,
		now:          time.Now,
		log:          logger.OrDefault(log).With(logger.Component("account")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes registers the account routes at the router root. Login and
// registration sit behind the Public guard, sign-out behind the Protected
// guard.
func (s *Service) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Public(s.sessions, auth.WithGuardLogger(s.log)))

		r.HandleFunc("/login", handler.Wrap(s.login,
			handler.WithBinders[handler.Context, LoginRequest](binder.Form()),
			handler.WithErrorHandler[handler.Context, LoginRequest](s.errorHandler),
		))
		r.HandleFunc("/register", handler.Wrap(s.register,
			handler.WithBinders[handler.Context, RegisterRequest](binder.Form()),
			handler.WithErrorHandler[handler.Context, RegisterRequest](s.errorHandler),
		))
		r.Post("/register/strength", handler.Wrap(s.strength,
			handler.WithBinders[handler.Context, StrengthRequest](binder.Signals()),
			handler.WithErrorHandler[handler.Context, StrengthRequest](s.errorHandler),
		))
	})

	r.With(auth.Protected(s.sessions, auth.WithGuardLogger(s.log))).
		Post("/logout", handler.Wrap(s.logout,
			handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
		))

	r.Get("/session/stream", auth.SessionStream(s.sessions, auth.WithGuardLogger(s.log)))
}

type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

func (s *Service) login(ctx handler.Context, req LoginRequest) handler.Response {
	params := views.LoginParams{Layout: views.PublicLayout("Log In"), Email: strings.TrimSpace(req.Email)}
	if ctx.Request().Method != http.MethodPost {
		return handler.Templ(views.LoginPage(params))
	}

	form := func() handler.Response {
		return handler.TemplPartial(views.LoginForm(params), views.LoginPage(params),
			handler.WithTarget(views.TargetLoginForm))
	}

	if params.Email == "" || req.Password == "" {
		params.Error = "Email and password are required"
		return form()
	}

	ip := clientip.FromContext(ctx)
	if ip == "" {
		ip = clientip.GetIP(ctx.Request())
	}
	if wait, limited := s.throttled(ctx, ip); limited {
		params.Error = fmt.Sprintf("Too many sign-in attempts. Try again in %s.", humanWait(wait))
		return form()
	}

	sess, err := s.auth.SignInWithPassword(ctx, params.Email, req.Password)
	if err == nil && (sess == nil || sess.User == nil) {
		err = gotrue.ErrInvalidResponse
	}
	if err != nil {
		s.log.WarnContext(ctx, "sign in failed", logger.Error(err))
		params.Error = gotrue.ErrorMessage(err, "Failed to login")
		return form()
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, ip); err != nil {
			s.log.WarnContext(ctx, "reset sign-in limit", logger.Error(err))
		}
	}

	if _, err := s.profiles.Sync(ctx, sess.User.ID); err != nil {
		level := slog.LevelError
		if errors.Is(err, profile.ErrNotFound) {
			level = slog.LevelWarn
		}
		s.log.Log(ctx, level, "profile sync after sign in failed",
			logger.UserID(sess.User.ID), logger.Error(err))
	}

	return handler.Redirect(auth.DefaultHomePath)
}

// throttled takes one attempt from the client's bucket. A failing limiter
// lets the attempt through.
func (s *Service) throttled(ctx context.Context, ip string) (time.Duration, bool) {
	if s.limiter == nil {
		return 0, false
	}
	res, err := s.limiter.Allow(ctx, ip)
	if err != nil {
		s.log.ErrorContext(ctx, "sign-in limiter unavailable", logger.Error(err))
		return 0, false
	}
	if res.Allowed() {
		return 0, false
	}
	s.log.WarnContext(ctx, "sign-in attempts throttled", slog.String("client_ip", ip))
	return res.RetryAfter(s.now()), true
}

func humanWait(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	switch {
	case secs <= 1:
		return "1 second"
	case secs < 60:
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	if mins == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", mins)
}

type RegisterRequest struct {
	Name            string `form:"name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func validateRegistration(req RegisterRequest) error {
	rules := []validator.Rule{
		validator.Required("name", req.Name),
		validator.MaxLen("name", req.Name, 100),
		validator.Required("email", req.Email),
		validator.ValidEmail("email", req.Email),
	}
	rules = append(rules, validator.Password("password", req.Password)...)
	rules = append(rules, validator.Equal("confirm_password", req.ConfirmPassword, req.Password, "Passwords do not match"))
	return validator.Apply(rules...)
}

func (s *Service) register(ctx handler.Context, req RegisterRequest) handler.Response {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	params := views.RegisterParams{
		Layout:   views.PublicLayout("Create Account"),
		Name:     req.Name,
		Email:    req.Email,
		Strength: validator.PasswordStrength(req.Password),
	}
	if ctx.Request().Method != http.MethodPost {
		return handler.Templ(views.RegisterPage(params))
	}

	form := func() handler.Response {
		return handler.TemplPartial(views.RegisterForm(params), views.RegisterPage(params),
			handler.WithTarget(views.TargetRegisterForm))
	}

	if err := validateRegistration(req); err != nil {
		params.Errors = validator.ExtractValidationErrors(err)
		return form()
	}

	res, err := s.auth.SignUp(ctx, req.Email, req.Password, map[string]any{"name": req.Name})
	if err != nil {
		s.log.WarnContext(ctx, "sign up failed", logger.Error(err))
		params.Error = gotrue.ErrorMessage(err, "Failed to register")
		return form()
	}
	if res.User == nil {
		params.Error = "Failed to register"
		return form()
	}

	if _, err := s.profiles.CreateForSignUp(ctx, res.User.ID, req.Email, req.Name); err != nil {
		s.log.ErrorContext(ctx, "create profile failed", logger.UserID(res.User.ID), logger.Error(err))
		params.Error = "Failed to register"
		return form()
	}

	s.log.InfoContext(ctx, "account registered", logger.UserID(res.User.ID))
	params.Success = registeredMessage
	return form()
}

type StrengthRequest struct {
	Password string `json:"password"`
}

func (s *Service) strength(_ handler.Context, req StrengthRequest) handler.Response {
	return handler.Templ(views.PasswordStrength(validator.PasswordStrength(req.Password)),
		handler.WithTarget(views.TargetStrength))
}

func (s *Service) logout(ctx handler.Context, _ struct{}) handler.Response {
	if err := s.auth.SignOut(ctx); err != nil {
		// The local session is gone either way.
		s.log.WarnContext(ctx, "sign out failed", logger.Error(err))
	}
	return handler.RedirectReplace(auth.DefaultLoginPath)
}
