// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the binary as a single file.
// No separate database server to install, configure, or manage, and ":memory:"
// gives every test its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// SQLX + SQUIRREL:
// database/sql makes you Scan every column by hand. sqlx maps rows onto
// structs using their `db:"..."` tags (see internal/model), and squirrel builds
// the statements whose shape depends on input, such as skill filters:
//
//	sq.Select("...").From("skills s").Where(sq.Eq{"s.category": "music"})
//
// Both sit on top of database/sql, so the connection pool, contexts and
// transactions behave exactly as they would with the standard library.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	// DRIVER IMPORT:
	// The sqlite package's init() registers a database/sql driver named
	// "sqlite". We also name the import to get at its *Error type, and lib
	// for the extended result codes.
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const instrumentationName = "github.com/sakif/skillswap/internal/repository/sqlite"

// DB wraps a sqlx connection pool and implements every repository interface.
type DB struct {
	conn *sqlx.DB
	obs  observability

	// optErr holds the first error raised by an Option; New reports it.
	optErr error
}

// Option configures a DB at construction time.
type Option func(*DB)

// WithLogger enables slow-query logging.
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) { db.obs.logger = logger }
}

// WithTracer records a span per repository call.
func WithTracer(tracer trace.Tracer) Option {
	return func(db *DB) { db.obs.tracer = tracer }
}

// WithMeter records call counts, durations and errors.
func WithMeter(meter metric.Meter) Option {
	return func(db *DB) { db.setMetrics(meter) }
}

// WithGlobalTelemetry uses the globally registered OpenTelemetry providers.
// They are no-ops until the process installs real ones.
func WithGlobalTelemetry() Option {
	return func(db *DB) {
		db.obs.tracer = otel.Tracer(instrumentationName)
		db.setMetrics(otel.Meter(instrumentationName))
	}
}

func (db *DB) setMetrics(meter metric.Meter) {
	m, err := newMetrics(meter)
	if err != nil {
		if db.optErr == nil {
			db.optErr = err
		}
		return
	}
	db.obs.metrics = m
}

// WithSlowQueryThreshold sets how long a call may take before it is logged
// at WARN. Defaults to 200ms.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(db *DB) { db.obs.slowThreshold = d }
}

// New opens the database, applies pragmas and runs migrations.
//
// dbPath examples:
//   - "data/skillswap.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time, PRAGMA foreign_keys is
// per-connection, and every connection to ":memory:" opens a different empty
// database. Capping the pool at one connection makes all three non-issues.
func New(dbPath string, opts ...Option) (*DB, error) {
	if err := registerFunctions(); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	// In-memory databases answer "memory" here, which is fine.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The cascades from users to
	// skills to requests depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{
		conn: conn,
		obs:  observability{slowThreshold: 200 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.optErr != nil {
		conn.Close()
		return nil, db.optErr
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so this runs on every start.
//
// CASCADES:
//
//	users ──< skills ──< requests
//	users ──────────────< requests (as requester)
//
// Deleting a user removes their skills, which removes every request on those
// skills; requests the user sent go through the requester_id foreign key.
func (db *DB) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users table", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
				name          TEXT NOT NULL,
				bio           TEXT NOT NULL DEFAULT '',
				role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('member', 'admin')),
				password_hash TEXT NOT NULL DEFAULT '',
				github_id     INTEGER UNIQUE,
				avatar_url    TEXT NOT NULL DEFAULT '',
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"skills table", `
			CREATE TABLE IF NOT EXISTS skills (
				id          TEXT PRIMARY KEY,
				owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category    TEXT NOT NULL,
				level       TEXT NOT NULL,
				created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_skills_owner_id ON skills(owner_id);
			CREATE INDEX IF NOT EXISTS idx_skills_created_at ON skills(created_at);`},
		{"requests table", `
			CREATE TABLE IF NOT EXISTS requests (
				id           TEXT PRIMARY KEY,
				skill_id     TEXT NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
				requester_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				message      TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_requests_skill_id ON requests(skill_id);
			CREATE INDEX IF NOT EXISTS idx_requests_requester_id ON requests(requester_id);`},
	}

	for _, st := range statements {
		if _, err := db.conn.Exec(st.sql); err != nil {
			return fmt.Errorf("creating %s: %w", st.name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY constraint
// failure, i.e. a referenced user or skill does not exist.
func isForeignKeyViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}
