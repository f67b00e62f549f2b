package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/skillswap/internal/config"
	"github.com/sakif/skillswap/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		Port:        8080,
		DBPath:      ":memory:",
		JWTSecret:   "server-test-secret-0123456789",
		TokenTTL:    time.Hour,
		LogLevel:    slog.LevelInfo,
		CORSOrigins: []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(testConfig(), logger, WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// call sends a JSON request and decodes the response into out when out is
// non-nil. It returns the status code.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func register(t *testing.T, ts *httptest.Server, name, email string) session {
	t.Helper()
	var s session
	status := call(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123",
	}, &s)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, s.Token)
	return s
}

func TestServer_SkillExchange(t *testing.T) {
	_, ts := newTestServer(t)

	ann := register(t, ts, "Ann", "ann@example.com")
	bob := register(t, ts, "Bob", "bob@example.com")

	// Ann lists a skill.
	var skill model.Skill
	status := call(t, ts, http.MethodPost, "/api/skills", ann.Token, map[string]string{
		"name": "Python Basics", "description": "Loops and functions",
		"category": "programming", "level": "beginner",
	}, &skill)
	require.Equal(t, http.StatusCreated, status)

	// Bob finds it while excluding his own listings.
	var found []model.Skill
	status = call(t, ts, http.MethodGet, "/api/skills?excludeMine=true&q=python", bob.Token, nil, &found)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, found, 1)
	assert.Equal(t, skill.ID, found[0].ID)

	// Bob asks, Ann accepts.
	var req model.Request
	status = call(t, ts, http.MethodPost, "/api/requests", bob.Token, map[string]string{
		"skillId": skill.ID, "message": "Please teach me",
	}, &req)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.StatusPending, req.Status)

	var received []model.Request
	status = call(t, ts, http.MethodGet, "/api/requests/received", ann.Token, nil, &received)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, received, 1)

	var accepted model.Request
	status = call(t, ts, http.MethodPut, "/api/requests/"+req.ID, ann.Token, map[string]string{"status": "accepted"}, &accepted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.StatusAccepted, accepted.Status)

	// The decision is final.
	var errBody map[string]string
	status = call(t, ts, http.MethodPut, "/api/requests/"+req.ID, ann.Token, map[string]string{"status": "rejected"}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", errBody["error"])

	var sent []model.Request
	status = call(t, ts, http.MethodGet, "/api/requests/sent", bob.Token, nil, &sent)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, sent, 1)
	assert.Equal(t, model.StatusAccepted, sent[0].Status)
}

func TestServer_LoginRoundTrip(t *testing.T) {
	_, ts := newTestServer(t)
	register(t, ts, "Ann", "ann@example.com")

	var s session
	status := call(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ANN@example.com", "password": "password123",
	}, &s)
	require.Equal(t, http.StatusOK, status)

	var me model.User
	status = call(t, ts, http.MethodGet, "/api/profile", s.Token, nil, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ann@example.com", me.Email)
}

func TestServer_AccessControl(t *testing.T) {
	srv, ts := newTestServer(t)
	ann := register(t, ts, "Ann", "ann@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"public catalog", http.MethodGet, "/api/skills", "", http.StatusOK},
		{"my skills anonymous", http.MethodGet, "/api/skills/my-skills", "", http.StatusUnauthorized},
		{"my skills member", http.MethodGet, "/api/skills/my-skills", ann.Token, http.StatusOK},
		{"garbage token", http.MethodGet, "/api/profile", "not-a-jwt", http.StatusUnauthorized},
		{"requests anonymous", http.MethodGet, "/api/requests/sent", "", http.StatusUnauthorized},
		{"admin as member", http.MethodGet, "/api/admin/users", ann.Token, http.StatusForbidden},
		{"admin anonymous", http.MethodGet, "/api/admin/users", "", http.StatusUnauthorized},
		{"github not configured", http.MethodGet, "/api/auth/github/login", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, call(t, ts, tt.method, tt.path, tt.token, nil, nil))
		})
	}

	t.Run("promoted admin", func(t *testing.T) {
		// Roles are read from the store on every request, so a promotion
		// takes effect without a new token.
		user, err := srv.DB().GetUserByID(t.Context(), ann.User.ID)
		require.NoError(t, err)
		user.Role = model.RoleAdmin
		require.NoError(t, srv.DB().UpdateUser(t.Context(), user))

		var users []model.User
		status := call(t, ts, http.MethodGet, "/api/admin/users", ann.Token, nil, &users)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, users, 1)
	})

	t.Run("deleted user's token", func(t *testing.T) {
		bob := register(t, ts, "Bob", "bob@example.com")
		status := call(t, ts, http.MethodDelete, "/api/admin/users/"+bob.User.ID, ann.Token, nil, nil)
		require.Equal(t, http.StatusNoContent, status)

		assert.Equal(t, http.StatusUnauthorized, call(t, ts, http.MethodGet, "/api/profile", bob.Token, nil, nil))
	})
}

func TestServer_HealthAndCORS(t *testing.T) {
	_, ts := newTestServer(t)

	var health map[string]string
	require.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health["status"])

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/skills", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
