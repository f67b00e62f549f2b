// Package main is the entry point for the SkillSwap API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (environment variables, optionally from .env)
//  2. Create the logger
//  3. Build the server and start it
//
// All actual logic lives in imported packages (internal/server,
// internal/service, internal/handler, ...), which keeps them testable.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/skillswap/internal/config"
	"github.com/sakif/skillswap/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load reads .env when present, then the real environment.
	// JWT_SECRET is the only required variable.
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet: fall back to the default one.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_LEVEL picks the minimum level (debug, info, warn, error).
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if !cfg.GitHub.Enabled() {
		logger.Info("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub login disabled")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
