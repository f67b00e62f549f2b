// Package client is a Go client for the SkillSwap HTTP API.
//
// A Client carries an explicit Session (bearer token plus the signed-in
// user). Login and Register fill it in, Logout clears it, and so does any
// 401 from the server, so a caller can check Session() to see whether it is
// still signed in.
//
// Listing calls are idempotent GETs and are retried on transport errors and
// 5xx responses with linear backoff. Mutations are sent exactly once.
package client

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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/skillswap/internal/model"
)

// Re-exported so callers outside this module can name the wire types.
type (
	User     = model.User
	Skill    = model.Skill
	Request  = model.Request
	Role     = model.Role
	Category = model.Category
	Level    = model.Level
	Status   = model.Status
)

const (
	defaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
	defaultTimeout = 10 * time.Second
)

// ErrUnauthenticated is matched by errors.Is for every 401 response.
var ErrUnauthenticated = errors.New("client: not authenticated")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Kind    string // "validation_error", "not_found", "invalid_transition", ...
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("skillswap: %d %s (%s): %s", e.Status, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("skillswap: %d %s: %s", e.Status, e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// Session is the signed-in state.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	retries int
	backoff time.Duration

	mu      sync.RWMutex
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetries sets how many times a failed GET is retried. 0 disables retries.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay; attempt n waits n*d.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithSession starts the client already signed in.
func WithSession(s *Session) Option {
	return func(c *Client) { c.session = s }
}

// New creates a Client for the API at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.Token
}

// do sends one API call. GETs are retried; everything else is sent once.
// out may be nil when the response body is not needed.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * c.backoff
			c.logger.Debug("client: retrying",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		retry, err := c.send(ctx, method, path, raw, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return lastErr
}

// send performs a single HTTP exchange and reports whether a failure is
// worth retrying.
func (c *Client) send(ctx context.Context, method, path string, raw []byte, out any) (bool, error) {
	var reader io.Reader
	if raw != nil {
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("client: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		if resp.StatusCode == http.StatusUnauthorized {
			c.setSession(nil)
		}
		return resp.StatusCode >= 500, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return false, nil
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		apiErr.Kind = http.StatusText(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Kind = body.Error
	apiErr.Message = body.Message
	apiErr.Field = body.Field
	return apiErr
}

func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// === Accounts ===

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

func (c *Client) Register(ctx context.Context, reg Registration) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", reg, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return c.Session(), nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &s); err != nil {
		return nil, err
	}
	c.setSession(&s)
	return c.Session(), nil
}

// Logout tells the server and drops the local session. The session is
// cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.setSession(nil)
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	Name *string `json:"name,omitempty"`
	Bio  *string `json:"bio,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/api/profile", upd, &u); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.User = u
	}
	c.mu.Unlock()
	return &u, nil
}

// === Catalog ===

// SkillQuery mirrors the catalog's query string. Zero values are omitted.
type SkillQuery struct {
	Search      string
	Category    Category
	Level       Level
	Sort        string // newest, oldest, name, category
	ExcludeMine bool
	Limit       int
	Offset      int
}

func (q SkillQuery) encode() string {
	v := url.Values{}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Level != "" {
		v.Set("level", string(q.Level))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.ExcludeMine {
		v.Set("excludeMine", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Skills(ctx context.Context, q SkillQuery) ([]Skill, error) {
	return list[Skill](ctx, c, "/api/skills"+q.encode())
}

func (c *Client) MySkills(ctx context.Context) ([]Skill, error) {
	return list[Skill](ctx, c, "/api/skills/my-skills")
}

func (c *Client) Skill(ctx context.Context, id string) (*Skill, error) {
	var s Skill
	if err := c.do(ctx, http.MethodGet, "/api/skills/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

type NewSkill struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Level       Level    `json:"level"`
}

func (c *Client) CreateSkill(ctx context.Context, s NewSkill) (*Skill, error) {
	var out Skill
	if err := c.do(ctx, http.MethodPost, "/api/skills", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteSkill(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/skills/"+url.PathEscape(id), nil, nil)
}

// === Requests ===

func (c *Client) CreateRequest(ctx context.Context, skillID, message string) (*Request, error) {
	var out Request
	body := map[string]string{"skillId": skillID, "message": message}
	if err := c.do(ctx, http.MethodPost, "/api/requests", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Accept(ctx context.Context, id string) (*Request, error) {
	return c.respond(ctx, id, model.StatusAccepted)
}

func (c *Client) Reject(ctx context.Context, id string) (*Request, error) {
	return c.respond(ctx, id, model.StatusRejected)
}

func (c *Client) respond(ctx context.Context, id string, to Status) (*Request, error) {
	var out Request
	body := map[string]Status{"status": to}
	if err := c.do(ctx, http.MethodPut, "/api/requests/"+url.PathEscape(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel withdraws a pending request the caller sent.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/requests/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ReceivedRequests(ctx context.Context) ([]Request, error) {
	return list[Request](ctx, c, "/api/requests/received")
}

func (c *Client) SentRequests(ctx context.Context) ([]Request, error) {
	return list[Request](ctx, c, "/api/requests/sent")
}

// === Admin ===

func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	return list[User](ctx, c, "/api/admin/users")
}

func (c *Client) AdminSkills(ctx context.Context) ([]Skill, error) {
	return list[Skill](ctx, c, "/api/admin/skills")
}

func (c *Client) AdminRequests(ctx context.Context) ([]Request, error) {
	return list[Request](ctx, c, "/api/admin/requests")
}

func (c *Client) AdminDeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminDeleteSkill(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/skills/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AdminDeleteRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/admin/requests/"+url.PathEscape(id), nil, nil)
}

// Health reports whether the server and its database are up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
