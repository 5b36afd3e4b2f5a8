package dashboard_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/modules/dashboard"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
)

type listStorage struct {
	exercise.Storage
	rows []exercise.Exercise
	err  error
}

func (s listStorage) ListByUser(context.Context, string) ([]exercise.Exercise, error) {
	return s.rows, s.err
}

func newRouter(t *testing.T, storage exercise.Storage) http.Handler {
	t.Helper()
	now := time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)
	svc := exercise.NewService(storage, exercise.NewStore(),
		exercise.WithLogger(logger.Discard()),
		exercise.WithClock(func() time.Time { return now }))

	sessions := auth.NewSessionStore(1)
	t.Cleanup(func() { _ = sessions.Close() })
	sessions.Publish(auth.Session{UserID: "u1", DisplayName: "Alice", WeightUnit: units.Kilograms})

	r := chi.NewRouter()
	r.With(auth.Protected(sessions)).Mount("/dashboard",
		dashboard.NewService(svc, handler.NewErrorHandler(logger.Discard(), handler.ErrorHandlerConfig{}), logger.Discard()).Handle())
	return r
}

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func TestDashboard(t *testing.T) {
	t.Parallel()

	t.Run("stats", func(t *testing.T) {
		t.Parallel()
		router := newRouter(t, listStorage{rows: []exercise.Exercise{
			{ID: "e1", UserID: "u1", Date: day(12), Name: "Squat", Type: exercise.TypeFree, Weight: 100, WeightUnit: units.Kilograms, Sets: 3, Reps: []int{5, 5, 5}},
			{ID: "e2", UserID: "u1", Date: day(11), Name: "Bench Press", Type: exercise.TypeFree, Weight: 60, WeightUnit: units.Kilograms, Sets: 3, Reps: []int{8, 8, 8}},
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Welcome back, Alice!")
		assert.Contains(t, body, "480 kg")
		assert.Contains(t, body, "2 days")
		assert.Contains(t, body, "Bench Press")
	})

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()
		router := newRouter(t, listStorage{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		assert.Contains(t, rec.Body.String(), "No exercises logged yet")
		assert.Contains(t, rec.Body.String(), "0 days")
	})

	t.Run("load failure still renders", func(t *testing.T) {
		t.Parallel()
		router := newRouter(t, listStorage{err: errors.New("connection refused")})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to load your exercises")
	})
}
