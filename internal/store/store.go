// Package store persists templates, their variable schemas, ingested
// documents, and draft instances in a local SQLite database. The pipeline
// treats every store call as atomic; templates and their variables are
// written in one transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Store is the SQLite-backed persistence layer. Safe for concurrent use; the
// connection pool is capped at one writer to avoid SQLITE_BUSY.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database location, ~/.lexdraft/lexdraft.db,
// creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".lexdraft")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "lexdraft.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS templates (
    id               TEXT PRIMARY KEY,
    template_id      TEXT NOT NULL UNIQUE,
    title            TEXT NOT NULL,
    file_description TEXT NOT NULL DEFAULT '',
    doc_type         TEXT NOT NULL DEFAULT '',
    jurisdiction     TEXT NOT NULL DEFAULT '',
    similarity_tags  TEXT NOT NULL DEFAULT '[]',  -- JSON array of strings
    body             TEXT NOT NULL,
    embedding        TEXT,                        -- JSON array of floats, NULL until embedded
    created_at       INTEGER NOT NULL,            -- Unix timestamp (seconds)
    updated_at       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS template_variables (
    id          TEXT PRIMARY KEY,
    template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
    key         TEXT NOT NULL,
    label       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    example     TEXT NOT NULL DEFAULT '',
    required    INTEGER NOT NULL DEFAULT 0,
    dtype       TEXT NOT NULL DEFAULT 'string',
    regex       TEXT NOT NULL DEFAULT '',
    enum_values TEXT NOT NULL DEFAULT '[]',       -- JSON array of strings
    UNIQUE (template_id, key)
);
CREATE TABLE IF NOT EXISTS documents (
    id         TEXT PRIMARY KEY,
    filename   TEXT NOT NULL,
    mime_type  TEXT NOT NULL DEFAULT '',
    raw_text   TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS instances (
    id           TEXT PRIMARY KEY,
    template_id  TEXT NOT NULL,
    user_query   TEXT NOT NULL DEFAULT '',
    answers      TEXT NOT NULL DEFAULT '{}',      -- JSON object key -> value
    draft_text   TEXT NOT NULL DEFAULT '',
    draft_number INTEGER NOT NULL DEFAULT 1,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_variables_template ON template_variables (template_id);
CREATE INDEX IF NOT EXISTS idx_instances_template ON instances (template_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// marshalJSON serializes v for a JSON text column, with a column-appropriate
// empty value on nil.
func marshalJSON(v any, empty string) string {
	if v == nil {
		return empty
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return empty
	}
	return string(raw)
}

func unmarshalStrings(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func unmarshalFloats(raw sql.NullString) []float32 {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []float32
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}
