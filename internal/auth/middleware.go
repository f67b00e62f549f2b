package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/skillswap/internal/apperror"
	"github.com/sakif/skillswap/internal/model"
)

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	UserID string
	Role   model.Role
}

// IsAdmin reports whether the identity may use moderation operations.
// Unknown roles are never admins.
func (id Identity) IsAdmin() bool {
	switch id.Role {
	case model.RoleAdmin:
		return true
	case model.RoleMember:
		return false
	default:
		return false
	}
}

// UserLookup is the slice of the user repository the Guard needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Guard resolves bearer credentials into identities.
type Guard struct {
	tokens *TokenService
	users  UserLookup
	logger *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(tokens *TokenService, users UserLookup, logger *slog.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, logger: logger}
}

// Resolve validates a raw token and loads the account it names.
//
// Every failure is reported as apperror.ErrUnauthenticated, including a
// valid token whose user has since been deleted. Callers are expected to
// drop their session when they see it.
func (g *Guard) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperror.Unauthenticated("authentication required")
	}

	userID, err := g.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Identity{}, apperror.Unauthenticated("token expired")
		}
		return Identity{}, apperror.Unauthenticated("invalid token")
	}

	user, err := g.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return Identity{}, apperror.Unauthenticated("account no longer exists")
		}
		return Identity{}, err
	}

	return Identity{UserID: user.ID, Role: user.Role}, nil
}

// contextKey is an unexported type so no other package can read or shadow
// the identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by RequireAuth or OptionalAuth.
// Returns (Identity{}, false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the Identity in the context for everything downstream.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			g.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the Identity when a valid token is present but lets
// anonymous requests through. A bad token is treated as no token.
func (g *Guard) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := g.Resolve(r.Context(), token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must be mounted after RequireAuth. It answers 403 for
// authenticated non-admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !id.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrUnauthenticated) {
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", appErr.Message)
		return
	}
	g.logger.Error("resolving identity failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authError mirrors the {"error","message"} body the handlers write.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authError{Error: kind, Message: message})
}
