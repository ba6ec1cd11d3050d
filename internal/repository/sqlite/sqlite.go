// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation keeps working. The whole store is a single file on disk
// (or ":memory:" in tests).
//
// UNIQUENESS LIVES IN THE SCHEMA:
// notes.slug carries a UNIQUE constraint. The service checks for a taken slug
// before writing so it can show a friendly field error, but two requests can
// still race between that check and the INSERT. The constraint settles the
// race: the loser's write fails, and we translate that failure into
// apperror.DuplicateSlug, the same error the pre-check would have produced.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements
// repository.NoteRepository and repository.UserRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/notes.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// PRAGMAs apply per connection, and every ":memory:" connection is a
	// brand new, empty database. Pinning the pool to a single connection
	// keeps foreign keys on and the in-memory schema visible everywhere.
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

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent,
// so it runs on every startup.
func (db *DB) migrate() error {
	// github_id is NULL for password accounts. SQLite allows many NULLs in a
	// UNIQUE column, so only real GitHub IDs are constrained.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// The implicit rowid grows with every INSERT, so ORDER BY rowid is
	// insertion order. List queries rely on that.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			text       TEXT NOT NULL DEFAULT '',
			slug       TEXT NOT NULL UNIQUE,
			author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notes_author_id ON notes(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating notes table: %w", err)
	}

	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure on the
// given "table.column".
//
// modernc.org/sqlite returns *sqlite.Error carrying the extended result
// code. SQLITE_CONSTRAINT_UNIQUE tells us it was a UNIQUE index; the message
// ("UNIQUE constraint failed: notes.slug") tells us which one.
func uniqueViolation(err error, column string) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(se.Error(), column)
}
