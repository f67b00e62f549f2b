// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
//   - which URL patterns map to which handler functions
//   - which middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New() creates:
//	  sqlite.DB → AuthService, CatalogService, LifecycleService, ModerationService
//	            → Guard (token service + user lookup)
//	            → handlers → routes
//
// This is the "composition root" pattern: every dependency is wired here,
// rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/config"
	"github.com/sakif/skillswap/internal/handler"
	"github.com/sakif/skillswap/internal/middleware"
	sqliteRepo "github.com/sakif/skillswap/internal/repository/sqlite"
	"github.com/sakif/skillswap/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown so the
// WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	passwordCost int
	github       *auth.GitHubProvider
}

// Option customises a Server. Tests use them to swap slow or external parts.
type Option func(*Server)

// WithPasswordCost sets the bcrypt cost. Tests pass bcrypt.MinCost.
func WithPasswordCost(cost int) Option {
	return func(s *Server) { s.passwordCost = cost }
}

// WithGitHubProvider replaces the provider built from config.
func WithGitHubProvider(p *auth.GitHubProvider) Option {
	return func(s *Server) { s.github = p }
}

// New opens the database and wires every route.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		// os.MkdirAll is `mkdir -p`: fine if the directory already exists.
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath,
		sqliteRepo.WithLogger(logger),
		sqliteRepo.WithGlobalTelemetry(),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if cfg.GitHub.Enabled() {
		s.github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// DB exposes the store, for seeding and tests.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

// Handler returns the fully wired router. httptest servers use it directly.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                      → liveness + DB ping
//	POST   /api/auth/register|login|logout
//	GET    /api/auth/github/login|callback (only when GitHub is configured)
//	GET    /api/profile, PUT /api/profile            [auth]
//	GET    /api/skills                                [optional auth]
//	GET    /api/skills/my-skills                      [auth]
//	GET    /api/skills/{id}
//	POST   /api/skills, DELETE /api/skills/{id}       [auth]
//	GET    /api/requests/received|sent                [auth]
//	POST   /api/requests, PUT|DELETE /api/requests/{id} [auth]
//	GET    /api/admin/{users,skills,requests}[/{id}]  [admin]
//	DELETE /api/admin/{users,skills,requests}/{id}    [admin]
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request
//  2. RealIP: extracts the client IP from proxy headers
//  3. Logger: logs each request with timing info and the request ID
//  4. Recoverer: catches panics and returns 500 instead of crashing
//  5. CORS: answers browser preflights before any auth runs
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// === Core dependencies ===
	ttl := s.config.TokenTTL
	tokens, err := auth.NewTokenService(s.config.JWTSecret, auth.WithTTL(ttl))
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	if s.passwordCost != 0 {
		passwords = auth.NewPasswordServiceWithCost(s.passwordCost)
	}
	guard := auth.NewGuard(tokens, s.db, s.logger)

	// *sqlite.DB implements all three repository interfaces.
	accounts := service.NewAuthService(s.db, tokens, passwords, s.logger)
	catalog := service.NewCatalogService(s.db, s.logger)
	lifecycle := service.NewLifecycleService(s.db, s.db, s.logger)
	moderation := service.NewModerationService(s.db, s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(accounts, s.github, s.logger)
	profileHandler := handler.NewProfileHandler(accounts, s.logger)
	skillHandler := handler.NewSkillHandler(catalog, s.logger)
	requestHandler := handler.NewRequestHandler(lifecycle, s.logger)
	adminHandler := handler.NewAdminHandler(moderation, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			if s.github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Get("/profile", profileHandler.HandleGet)
			r.Put("/profile", profileHandler.HandleUpdate)
		})

		r.Route("/skills", func(r chi.Router) {
			r.With(guard.OptionalAuth).Get("/", skillHandler.HandleList)
			// Registered before /{id} so "my-skills" is never taken for an id.
			r.With(guard.RequireAuth).Get("/my-skills", skillHandler.HandleListMine)
			r.Get("/{id}", skillHandler.HandleGet)
			r.With(guard.RequireAuth).Post("/", skillHandler.HandleCreate)
			r.With(guard.RequireAuth).Delete("/{id}", skillHandler.HandleDelete)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Get("/received", requestHandler.HandleListReceived)
			r.Get("/sent", requestHandler.HandleListSent)
			r.Post("/", requestHandler.HandleCreate)
			r.Put("/{id}", requestHandler.HandleRespond)
			r.Delete("/{id}", requestHandler.HandleCancel)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Use(auth.RequireAdmin)
			r.Get("/users", adminHandler.HandleListUsers)
			r.Get("/users/{id}", adminHandler.HandleGetUser)
			r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
			r.Get("/skills", adminHandler.HandleListSkills)
			r.Get("/skills/{id}", adminHandler.HandleGetSkill)
			r.Delete("/skills/{id}", adminHandler.HandleDeleteSkill)
			r.Get("/requests", adminHandler.HandleListRequests)
			r.Get("/requests/{id}", adminHandler.HandleGetRequest)
			r.Delete("/requests/{id}", adminHandler.HandleDeleteRequest)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github_login", s.github != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
