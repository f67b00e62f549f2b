package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/model"
	"github.com/sakif/skillswap/internal/repository/sqlite"
	"github.com/sakif/skillswap/internal/service"
)

// testAPI wires real services over an in-memory database. Handlers are
// called through a chi router so URL params resolve as in production, but
// the caller's Identity is injected directly instead of going through JWTs.
type testAPI struct {
	db         *sqlite.DB
	accounts   *service.AuthService
	catalog    *service.CatalogService
	lifecycle  *service.LifecycleService
	moderation *service.ModerationService
	tokens     *auth.TokenService
	logger     *slog.Logger
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testAPI{
		db:         db,
		accounts:   service.NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), logger),
		catalog:    service.NewCatalogService(db, logger),
		lifecycle:  service.NewLifecycleService(db, db, logger),
		moderation: service.NewModerationService(db, db, db, logger),
		tokens:     tokens,
		logger:     logger,
	}
}

// user creates an account directly in the store.
func (a *testAPI) user(t *testing.T, name string, role model.Role) auth.Identity {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, a.db.CreateUser(context.Background(), u))
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

func (a *testAPI) skill(t *testing.T, owner auth.Identity, name string) *model.Skill {
	t.Helper()
	s, err := a.catalog.Create(context.Background(), owner, service.NewSkill{
		Name:        name,
		Description: "Learn " + name,
		Category:    model.CategoryProgramming,
		Level:       model.LevelBeginner,
	})
	require.NoError(t, err)
	return s
}

// do sends method+path through a one-route chi router. A zero Identity
// means anonymous.
func do(t *testing.T, pattern, method, path string, h http.HandlerFunc, as auth.Identity, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as.UserID != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), as))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}
