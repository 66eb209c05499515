// Package sqlite implements the repository interfaces on top of SQLite.
//
// The driver is modernc.org/sqlite, a pure Go build of SQLite, so the binary
// needs no C toolchain. Use ":memory:" as the path for a throwaway database.
//
// SCHEMA
//
//	users:   one row per account (local or Google)
//	secrets: one row per submitted secret, ordered per user by position
//
// The schema is versioned with PRAGMA user_version. Each entry in migrations
// runs exactly once, in order, inside its own transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and brings the schema up to date.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer. One pooled connection also keeps every
	// caller on the same ":memory:" database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrations is append-only: index i holds the statements for schema
// version i+1. Never edit an entry that has shipped.
var migrations = []string{
	// v1: users and their secrets.
	`
	CREATE TABLE users (
		id            TEXT PRIMARY KEY,
		username      TEXT UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		google_id     TEXT UNIQUE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE secrets (
		user_id    TEXT NOT NULL REFERENCES users(id),
		position   INTEGER NOT NULL,
		body       TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, position)
	);
	`,
	// v2: listing walks users in creation order.
	`
	CREATE INDEX idx_users_created_at ON users(created_at);
	`,
}

// SchemaVersion returns the schema version recorded in the database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return v, nil
}

func (db *DB) migrate(ctx context.Context) error {
	current, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("database schema v%d is newer than this binary (v%d)", current, len(migrations))
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("v%d: begin: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("v%d: %w", version, err)
		}
		// PRAGMA does not accept bound parameters; version is an int we control.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("v%d: recording version: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("v%d: commit: %w", version, err)
		}
	}
	return nil
}
