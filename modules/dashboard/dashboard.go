// Package dashboard serves the signed-in landing page.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
	"github.com/dmitrymomot/fittrack/views"
)

type Exercises interface {
	Load(ctx context.Context, userID string) error
	Stats(unit units.Unit) exercise.Stats
}

type Service struct {
	exercises    Exercises
	log          *slog.Logger
	errorHandler handler.ErrorHandler[handler.Context]
}

func NewService(exercises Exercises, errorHandler handler.ErrorHandler[handler.Context], log *slog.Logger) *Service {
	return &Service{
		exercises:    exercises,
		errorHandler: errorHandler,
		log:          logger.OrDefault(log).With(logger.Component("dashboard")),
	}
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/", handler.Wrap(s.show,
		handler.WithErrorHandler[handler.Context, struct{}](s.errorHandler),
	))
	return r
}

func (s *Service) show(ctx handler.Context, _ struct{}) handler.Response {
	sess := auth.CurrentSession(ctx)
	p := views.DashboardParams{Layout: views.NewLayout("Dashboard", "dashboard", sess)}

	// The failure is already logged by the exercise service.
	if err := s.exercises.Load(ctx, sess.UserID); err != nil {
		p.Error = "Failed to load your exercises"
	}
	p.Stats = s.exercises.Stats(sess.WeightUnit)
	return handler.Templ(views.DashboardPage(p))
}
