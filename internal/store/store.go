// Package store implements the Object Store (C1), Collection Engine (C2),
// Actor Registry persistence (C3), and Federated Delivery Queue persistence
// (C7) on top of a dual SQLite/PostgreSQL backend, following the same
// driver-detection, PRAGMA-tuning, and idempotent-migration idiom the
// teacher bridge's db package uses.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"
	"github.com/puzpuzpuz/xsync/v3"
	_ "modernc.org/sqlite"
)

// Store wraps a database connection and provides all data access methods
// for C1/C2/C3/C7 persistence.
type Store struct {
	db     *sql.DB
	driver string

	// objectCache holds recently read/written objects to cut DB round-trips
	// on the hot GET/patch path.
	objectCache *xsync.MapOf[string, []byte]
}

// Open opens a database connection. The URL can be:
//   - A bare file path like "onepagepub.db" → SQLite
//   - "sqlite://path/to/file.db" → SQLite
//   - "postgres://..." → PostgreSQL
func Open(databaseURL string) (*Store, error) {
	driver, dsn := detectDriver(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if driver == "sqlite" {
		// WAL allows concurrent readers alongside the single writer; the
		// small pool keeps read-heavy operations (collection pages, stats,
		// ops queries) from queuing behind every activity-engine write.
		//
		// For deployments juggling many concurrent inbox deliveries, switch
		// to PostgreSQL (DATABASE_URL=postgres://...) — SQLite's
		// single-writer architecture is a ceiling no pragma tuning removes.
		const sqliteMaxConns = 4
		db.SetMaxOpenConns(sqliteMaxConns)
		db.SetMaxIdleConns(sqliteMaxConns)

		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
			"PRAGMA synchronous=NORMAL",
		} {
			if _, err := db.Exec(pragma); err != nil {
				return nil, fmt.Errorf("sqlite pragma (%s): %w", pragma, err)
			}
		}
		slog.Info("sqlite database opened", "max_conns", sqliteMaxConns)
	}

	return &Store{
		db:          db,
		driver:      driver,
		objectCache: xsync.NewMapOf[string, []byte](),
	}, nil
}

func detectDriver(u string) (driver, dsn string) {
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") {
		return "postgres", u
	}
	if strings.HasPrefix(u, "sqlite://") {
		return "sqlite", strings.TrimPrefix(u, "sqlite://")
	}
	return "sqlite", u
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Driver reports which backend ("sqlite" or "postgres") this Store is
// running against, for display on the ops status surface.
func (s *Store) Driver() string { return s.driver }

// Migrate runs all pending database migrations.
func (s *Store) Migrate() error {
	slog.Info("running database migrations")
	for _, m := range commonMigrations {
		if _, err := s.db.Exec(m); err != nil {
			if s.driver == "postgres" && strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	slog.Info("migrations complete")
	return nil
}

// commonMigrations lists DDL shared between SQLite and PostgreSQL. Ordering
// keys are stored as sortable RFC3339Nano text rather than relying on
// AUTOINCREMENT/SERIAL, which differ enough between the two dialects that
// sharing migrations would break.
var commonMigrations = []string{
	`CREATE TABLE IF NOT EXISTS objects (
		id            TEXT PRIMARY KEY,
		doc           TEXT NOT NULL,
		type          TEXT NOT NULL,
		attributed_to TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS objects_attributed_to ON objects(attributed_to)`,
	`CREATE INDEX IF NOT EXISTS objects_type ON objects(type)`,

	`CREATE TABLE IF NOT EXISTS collections (
		id          TEXT PRIMARY KEY,
		owner       TEXT NOT NULL DEFAULT '',
		private     INTEGER NOT NULL DEFAULT 0,
		total_items INTEGER NOT NULL DEFAULT 0,
		name        TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS collection_items (
		collection_id TEXT NOT NULL,
		item_iri      TEXT NOT NULL,
		added_at      TEXT NOT NULL,
		ord           INTEGER NOT NULL,
		UNIQUE(collection_id, item_iri)
	)`,
	`CREATE INDEX IF NOT EXISTS collection_items_coll ON collection_items(collection_id, added_at, ord)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		username        TEXT PRIMARY KEY,
		actor_id        TEXT NOT NULL UNIQUE,
		key_id          TEXT NOT NULL DEFAULT '',
		password_hash   TEXT NOT NULL,
		token           TEXT NOT NULL UNIQUE,
		private_key_pem TEXT NOT NULL,
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS accounts_token ON accounts(token)`,

	`CREATE TABLE IF NOT EXISTS delivery_jobs (
		id              TEXT PRIMARY KEY,
		activity_id     TEXT NOT NULL,
		target_inbox    TEXT NOT NULL,
		payload         TEXT NOT NULL,
		attempts        INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending',
		last_error      TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS delivery_jobs_ready ON delivery_jobs(status, next_attempt_at)`,

	`CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		ts     TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_log_ts ON audit_log(ts)`,
}

// ph returns the driver-appropriate placeholder for the nth (1-indexed)
// argument of a query.
func (s *Store) ph(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func scanStringRows(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
