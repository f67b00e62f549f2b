// Package config loads server settings from the environment.
//
// Values come from real environment variables first. A .env file, when one
// exists, only fills in variables that are not already set, so a deployment
// can always override what a developer keeps in .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort        = 8080
	defaultDBPath      = "data/skillswap.db"
	defaultTokenTTL    = 24 * time.Hour
	defaultCORSOrigins = "http://localhost:3000"

	minSecretLength = 16
)

var errMissingRequiredEnv = errors.New("missing required environment variables")

type Config struct {
	Port        int
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	LogLevel    slog.Level
	CORSOrigins []string
	GitHub      GitHubConfig
}

// GitHubConfig is optional. GitHub login is offered only when ClientID and
// ClientSecret are both set.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing files are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (Config, error) {
	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, fallback string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DBPath:    opt("DB_PATH", defaultDBPath),
		JWTSecret: req("JWT_SECRET"),
		GitHub: GitHubConfig{
			ClientID:     opt("GITHUB_CLIENT_ID", ""),
			ClientSecret: opt("GITHUB_CLIENT_SECRET", ""),
		},
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}

	port, err := strconv.Atoi(opt("PORT", strconv.Itoa(defaultPort)))
	if err != nil || port < 1 || port > 65535 {
		return Config{}, fmt.Errorf("config: PORT must be a number between 1 and 65535")
	}
	cfg.Port = port

	cfg.TokenTTL, err = time.ParseDuration(opt("TOKEN_TTL", defaultTokenTTL.String()))
	if err != nil || cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("config: TOKEN_TTL must be a positive duration such as 24h")
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(opt("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	for _, origin := range strings.Split(opt("CORS_ORIGINS", defaultCORSOrigins), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if (cfg.GitHub.ClientID == "") != (cfg.GitHub.ClientSecret == "") {
		return Config{}, fmt.Errorf("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}
	cfg.GitHub.CallbackURL = opt("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port))

	return cfg, nil
}
