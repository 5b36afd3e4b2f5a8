package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/fittrack/pkg/logger"
)

// Client talks to the GoTrue REST API and owns the current session.
// All methods are safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	storage Storage
	log     *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session *Session

	refreshMu sync.Mutex
	emitter   *Emitter
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithStorage sets where the session is persisted. Defaults to MemoryStorage.
func WithStorage(s Storage) ClientOption {
	return func(cl *Client) {
		if s != nil {
			cl.storage = s
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.log = logger.OrDefault(l)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ClientOption {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, fmt.Errorf("%w: url and anon key are required", ErrInvalidConfig)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Second
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = 90 * time.Second
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		storage: NewMemoryStorage(),
		log:     slog.Default(),
		now:     time.Now,
		emitter: NewEmitter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("gotrue"))
	return c, nil
}

// Session returns the current session or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// OnAuthStateChange registers fn and immediately delivers INITIAL_SESSION
// with the current session (which may be nil) to it.
func (c *Client) OnAuthStateChange(fn Listener) *Subscription {
	sub := c.emitter.OnAuthStateChange(fn)
	sub.deliver(Event{Kind: InitialSession, Session: c.Session()})
	return sub
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"password"}}, body, "", &s); err != nil {
		return nil, err
	}
	if err := c.normalize(&s); err != nil {
		return nil, err
	}
	c.setSession(ctx, &s, SignedIn)
	return &s, nil
}

// SignUpResult carries the created user. Session is nil when the project
// requires email confirmation before the first sign-in.
type SignUpResult struct {
	User    *User
	Session *Session
}

// SignUp registers a new account. Metadata is stored as user_metadata.
// When the server answers with a session it becomes current and SIGNED_IN
// is emitted.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", nil, body, "", &raw); err != nil {
		return nil, err
	}

	var probe struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}

	if probe.AccessToken == "" {
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, errors.Join(ErrInvalidResponse, err)
		}
		if u.ID == "" {
			return nil, fmt.Errorf("%w: sign-up returned no user", ErrInvalidResponse)
		}
		return &SignUpResult{User: &u}, nil
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Join(ErrInvalidResponse, err)
	}
	if err := c.normalize(&s); err != nil {
		return nil, err
	}
	c.setSession(ctx, &s, SignedIn)
	return &SignUpResult{User: s.User, Session: &s}, nil
}

// SignOut revokes the session on the server. The local session is cleared
// and SIGNED_OUT emitted even when the server call fails; that error is
// still returned.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if s := c.Session(); s != nil {
		err = c.do(ctx, http.MethodPost, "/logout", nil, nil, s.AccessToken, nil)
		if err != nil {
			c.log.WarnContext(ctx, "server sign-out failed", logger.Error(err))
		}
	}
	c.setSession(ctx, nil, SignedOut)
	return err
}

// RefreshSession exchanges the refresh token for a new session. When the
// server rejects the refresh token the session is dropped and SIGNED_OUT
// emitted.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.Session()
	if cur == nil || cur.RefreshToken == "" {
		return nil, ErrNoSession
	}
	return c.refresh(ctx, cur.RefreshToken)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var s Session
	err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {"refresh_token"}}, body, "", &s)
	if err == nil {
		err = c.normalize(&s)
	}
	if err != nil {
		if IsClientError(err) || errors.Is(err, ErrInvalidResponse) {
			c.setSession(ctx, nil, SignedOut)
		}
		return nil, err
	}
	c.setSession(ctx, &s, TokenRefreshed)
	return &s, nil
}

// GetUser fetches the user for the current access token.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	s := c.Session()
	if s == nil {
		return nil, ErrNoSession
	}
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, s.AccessToken, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Restore loads the persisted session into the client without emitting an
// event; listeners registered afterwards see it as INITIAL_SESSION. A stored
// session close to expiry is refreshed, and one that fails verification is
// discarded.
func (c *Client) Restore(ctx context.Context) error {
	s, err := c.storage.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load stored session: %w", err)
	}

	if c.cfg.JWTSecret != "" {
		if _, err := ParseClaims(s.AccessToken, c.cfg.JWTSecret); err != nil && !isExpired(err) {
			c.log.WarnContext(ctx, "discarding stored session", logger.Error(err))
			return c.storage.Remove(ctx)
		}
	}
	if err := c.normalize(s); err != nil {
		c.log.WarnContext(ctx, "discarding stored session", logger.Error(err))
		return c.storage.Remove(ctx)
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if s.ExpiresWithin(c.now(), c.cfg.RefreshMargin) {
		if _, err := c.RefreshSession(ctx); err != nil {
			return fmt.Errorf("refresh stored session: %w", err)
		}
	}
	return nil
}

// AutoRefresh refreshes the session shortly before it expires. It blocks
// until ctx is done.
func (c *Client) AutoRefresh(ctx context.Context) {
	t := time.NewTicker(c.cfg.RefreshInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := c.Session()
			if s == nil || !s.ExpiresWithin(c.now(), c.cfg.RefreshMargin) {
				continue
			}
			if _, err := c.RefreshSession(ctx); err != nil && !errors.Is(err, ErrNoSession) {
				c.log.ErrorContext(ctx, "session refresh failed", logger.Error(err))
			}
		}
	}
}

// normalize fills ExpiresAt from expires_in or the token exp claim.
func (c *Client) normalize(s *Session) error {
	if s.AccessToken == "" || s.User == nil || s.User.ID == "" {
		return fmt.Errorf("%w: session without token or user", ErrInvalidResponse)
	}
	if s.ExpiresAt != 0 {
		return nil
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
		return nil
	}
	if claims, err := ParseClaims(s.AccessToken, ""); err == nil && claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return nil
}

func (c *Client) setSession(ctx context.Context, s *Session, kind EventKind) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	var err error
	if s == nil {
		err = c.storage.Remove(ctx)
	} else {
		err = c.storage.Save(ctx, s)
	}
	if err != nil {
		c.log.ErrorContext(ctx, "persist session", logger.Error(err))
	}

	c.log.DebugContext(ctx, "auth state changed", logger.Event(string(kind)))
	c.emitter.Emit(Event{Kind: kind, Session: s})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, token string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token == "" {
		token = c.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gotrue: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		apiErr := eb.toAPIError(resp.StatusCode)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Join(ErrInvalidResponse, err)
	}
	return nil
}
