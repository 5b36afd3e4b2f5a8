package profile_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fittrack/handler"
	profilemod "github.com/dmitrymomot/fittrack/modules/profile"
	"github.com/dmitrymomot/fittrack/pkg/file"
	"github.com/dmitrymomot/fittrack/pkg/logger"
	"github.com/dmitrymomot/fittrack/svc/auth"
	"github.com/dmitrymomot/fittrack/svc/profile"
	"github.com/dmitrymomot/fittrack/svc/units"
)

type memStorage struct {
	mu   sync.Mutex
	rows map[string]profile.Profile
}

func (m *memStorage) Create(_ context.Context, p profile.Profile) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; ok {
		return profile.Profile{}, profile.ErrAlreadyExists
	}
	m.rows[p.ID] = p
	return p, nil
}

func (m *memStorage) GetByID(_ context.Context, id string) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (m *memStorage) Update(_ context.Context, id, name string, unit units.Unit) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	p.Name, p.WeightUnit = name, unit
	m.rows[id] = p
	return p, nil
}

func (m *memStorage) SetPicture(_ context.Context, id, u string) (profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	p.ProfilePictureURL = u
	m.rows[id] = p
	return p, nil
}

type fixture struct {
	storage  *memStorage
	sessions *auth.SessionStore
	router   http.Handler
}

func newFixture(t *testing.T, withFiles bool) *fixture {
	t.Helper()
	f := &fixture{
		storage: &memStorage{rows: map[string]profile.Profile{
			"u1": {ID: "u1", Email: "alice@example.com", Name: "Alice", WeightUnit: units.Kilograms},
		}},
		sessions: auth.NewSessionStore(1),
	}
	t.Cleanup(func() { _ = f.sessions.Close() })
	f.sessions.Publish(auth.Session{UserID: "u1", Email: "alice@example.com", DisplayName: "Alice", WeightUnit: units.Kilograms})

	opts := []profile.ServiceOption{profile.WithLogger(logger.Discard())}
	if withFiles {
		fs, err := file.NewLocalStorage(t.TempDir(), "/uploads")
		require.NoError(t, err)
		opts = append(opts, profile.WithFileStorage(fs))
	}
	svc := profile.NewService(f.storage, f.sessions, opts...)

	r := chi.NewRouter()
	r.With(auth.Protected(f.sessions)).Mount("/profile",
		profilemod.NewService(svc, handler.NewErrorHandler(logger.Discard(), handler.ErrorHandlerConfig{}), logger.Discard()).Handle())
	f.router = r
	return f
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func postForm(form url.Values, datastar bool) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if datastar {
		r.Header.Set(handler.DataStarHeader, "true")
	}
	return r
}

func uploadRequest(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/profile/avatar", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestShow(t *testing.T) {
	t.Parallel()

	t.Run("stored profile", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.do(httptest.NewRequest(http.MethodGet, "/profile", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "alice@example.com")
		assert.Contains(t, rec.Body.String(), `value="kg" checked`)
	})

	t.Run("missing row falls back to the session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.storage.rows = map[string]profile.Profile{}
		rec := f.do(httptest.NewRequest(http.MethodGet, "/profile", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="Alice"`)
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	t.Run("datastar patch republishes the session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.do(postForm(url.Values{"name": {"Alice Smith"}, "weight_unit": {"lbs"}}, true))
		body := rec.Body.String()
		assert.Contains(t, body, "#profile-form")
		assert.Contains(t, body, "Profile updated")

		sess := f.sessions.Snapshot()
		require.NotNil(t, sess)
		assert.Equal(t, "Alice Smith", sess.DisplayName)
		assert.Equal(t, units.Pounds, sess.WeightUnit)
	})

	t.Run("plain form redirects", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.do(postForm(url.Values{"name": {"Alice"}, "weight_unit": {"kg"}}, false))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/profile", rec.Header().Get("Location"))
	})

	t.Run("invalid unit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.do(postForm(url.Values{"name": {"Alice"}, "weight_unit": {"stone"}}, false))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "Profile updated")
		assert.Equal(t, units.Kilograms, f.storage.rows["u1"].WeightUnit)
	})
}

func TestAvatar(t *testing.T) {
	t.Parallel()

	t.Run("image is stored", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		rec := f.do(uploadRequest(t, "me.png", pngHeader))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.True(t, strings.HasPrefix(f.storage.rows["u1"].ProfilePictureURL, "/uploads/avatars/u1/"))
		assert.Equal(t, f.storage.rows["u1"].ProfilePictureURL, f.sessions.Snapshot().AvatarURL)
	})

	t.Run("non image rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)
		rec := f.do(uploadRequest(t, "notes.txt", []byte("just some text")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Upload a JPEG, PNG, GIF or WebP image")
		assert.Empty(t, f.storage.rows["u1"].ProfilePictureURL)
	})

	t.Run("uploads disabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		rec := f.do(uploadRequest(t, "me.png", pngHeader))
		assert.Contains(t, rec.Body.String(), "Picture uploads are not available")
	})
}
