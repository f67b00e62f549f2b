// Command seed populates the database with an admin account and sample data.
//
// It reads the same configuration as the server (DB_PATH, JWT_SECRET, ...)
// and is safe to run repeatedly: a database that already has the admin is
// left untouched.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/skillswap/internal/auth"
	"github.com/sakif/skillswap/internal/config"
	"github.com/sakif/skillswap/internal/repository/sqlite"
	"github.com/sakif/skillswap/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}

	db, err := sqlite.New(cfg.DBPath, sqlite.WithLogger(logger))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := seed.Run(ctx, db, auth.NewPasswordService(), logger)
	if err != nil {
		return err
	}
	if !res.Skipped {
		logger.Info("sample logins",
			slog.String("admin", seed.AdminEmail+" / "+seed.AdminPassword),
			slog.String("members", "john@example.com, jane@example.com, mike@example.com / "+seed.MemberPassword),
		)
	}
	return nil
}
