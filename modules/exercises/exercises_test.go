package exercises_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/handler"
	"github.com/dmitrymomot/fittrack/modules/exercises"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
)

type memStorage struct {
	mu   sync.Mutex
	rows map[string]exercise.Exercise
}

func newMemStorage(rows ...exercise.Exercise) *memStorage {
	m := &memStorage{rows: map[string]exercise.Exercise{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memStorage) ListByUser(_ context.Context, userID string) ([]exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []exercise.Exercise
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStorage) GetByID(_ context.Context, userID, id string) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return exercise.Exercise{}, exercise.ErrNotFound
	}
	return r, nil
}

func (m *memStorage) Insert(_ context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	m.rows[e.ID] = e
	return e, nil
}

func (m *memStorage) Update(_ context.Context, e exercise.Exercise) (exercise.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[e.ID]; !ok || r.UserID != e.UserID {
		return exercise.Exercise{}, exercise.ErrNotFound
	}
	m.rows[e.ID] = e
	return e, nil
}

func (m *memStorage) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; !ok || r.UserID != userID {
		return exercise.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memStorage) get(id string) (exercise.Exercise, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

func (m *memStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	storage *memStorage
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage := newMemStorage(
		exercise.Exercise{ID: "e1", UserID: "u1", Date: day(1), Name: "Bench Press", Type: exercise.TypeFree, Weight: 60, WeightUnit: units.Kilograms, Sets: 3, Reps: []int{10, 8, 6}},
		exercise.Exercise{ID: "e2", UserID: "u1", Date: day(2), Name: "Leg Press", Type: exercise.TypeMachine, Weight: 120, WeightUnit: units.Kilograms, Sets: 4, Reps: []int{12, 12, 10, 10}},
		exercise.Exercise{ID: "e3", UserID: "u2", Date: day(3), Name: "Deadlift", Type: exercise.TypeFree, Weight: 140, WeightUnit: units.Kilograms, Sets: 1, Reps: []int{5}},
	)
	svc := exercise.NewService(storage, exercise.NewStore(), exercise.WithLogger(logger.Discard()))

	sessions := auth.NewSessionStore(1)
	t.Cleanup(func() { _ = sessions.Close() })
	sessions.Publish(auth.Session{UserID: "u1", DisplayName: "Alice", WeightUnit: units.Kilograms})

	r := chi.NewRouter()
	r.With(auth.Protected(sessions)).Mount("/exercises",
		exercises.NewService(svc, handler.NewErrorHandler(logger.Discard(), handler.ErrorHandlerConfig{}), logger.Discard()).Handle())
	return &fixture{storage: storage, router: r}
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func signalsRequest(method, path, signals string) *http.Request {
	q := url.Values{"datastar": {signals}}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	r := httptest.NewRequest(method, path+sep+q.Encode(), nil)
	r.Header.Set(handler.DataStarHeader, "true")
	return r
}

func postForm(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func validForm() url.Values {
	return url.Values{
		"date":          {"2025-03-10"},
		"exercise_name": {"Squat"},
		"type":          {"free"},
		"weight":        {"100"},
		"weight_unit":   {"kg"},
		"sets":          {"3"},
		"reps":          {"5, 5, 5"},
		"notes":         {"belt"},
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("full page loads only the user's exercises", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/exercises", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Bench Press")
		assert.Contains(t, body, "Leg Press")
		assert.NotContains(t, body, "Deadlift")
	})

	t.Run("search signal filters the table", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.do(httptest.NewRequest(http.MethodGet, "/exercises", nil))

		rec := f.do(signalsRequest(http.MethodGet, "/exercises", `{"search":"BENCH","type":"all","sort_by":"date","order":"desc"}`))
		body := rec.Body.String()
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		assert.Contains(t, body, "#exercise-table")
		assert.Contains(t, body, "Bench Press")
		assert.NotContains(t, body, "Leg Press")
	})

	t.Run("toggle patches sort signals", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.do(httptest.NewRequest(http.MethodGet, "/exercises", nil))

		rec := f.do(signalsRequest(http.MethodGet, "/exercises?toggle=weight", `{"sort_by":"date","order":"desc"}`))
		body := rec.Body.String()
		assert.Contains(t, body, "datastar-patch-signals")
		assert.Contains(t, body, `"sort_by":"weight"`)
		assert.Less(t, strings.Index(body, "Leg Press"), strings.Index(body, "Bench Press"))
	})
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("valid form redirects to the list", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(postForm("/exercises", validForm()))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/exercises", rec.Header().Get("Location"))
		assert.Equal(t, 4, f.storage.len())
	})

	t.Run("unparseable reps", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		form := validForm()
		form.Set("reps", "five")
		rec := f.do(postForm("/exercises", form))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Enter reps as numbers separated by commas")
		assert.Equal(t, 3, f.storage.len())
	})

	t.Run("rule violations keep typed values", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		form := validForm()
		form.Set("sets", "2")
		rec := f.do(postForm("/exercises", form))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="Squat"`)
		assert.Equal(t, 3, f.storage.len())
	})

	t.Run("new form defaults", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/exercises/new", nil))
		assert.Contains(t, rec.Body.String(), `value="kg" selected`)
		assert.Contains(t, rec.Body.String(), "Log Exercise")
	})
}

func TestEdit(t *testing.T) {
	t.Parallel()

	t.Run("form prefilled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/exercises/e1/edit", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="10, 8, 6"`)
		assert.Contains(t, rec.Body.String(), `value="2025-03-01"`)
	})

	t.Run("someone else's exercise is not found", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/exercises/e3/edit", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		rec := f.do(postForm("/exercises/e1", validForm()))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		got, ok := f.storage.get("e1")
		require.True(t, ok)
		assert.Equal(t, "Squat", got.Name)
		assert.Equal(t, []int{5, 5, 5}, got.Reps)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/exercises", nil))

	rec := f.do(signalsRequest(http.MethodDelete, "/exercises/e1", `{"search":""}`))
	body := rec.Body.String()
	assert.Contains(t, body, "Exercise deleted")
	assert.NotContains(t, body, "Bench Press")
	assert.Contains(t, body, "Leg Press")
	_, ok := f.storage.get("e1")
	assert.False(t, ok)
}
