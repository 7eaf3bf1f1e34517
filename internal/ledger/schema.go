// Package ledger records export passes and indexes generated markdown files
// in SQLite, with optional FTS5 full-text search.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS passes (
	id          TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	selected    INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS record_outcomes (
	pass_id          TEXT NOT NULL REFERENCES passes(id) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	record_id        TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	path             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL,
	stage            TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	assets_localized INTEGER NOT NULL DEFAULT 0,
	asset_failures   TEXT NOT NULL DEFAULT '[]',
	relations_failed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (pass_id, seq)
);

CREATE TABLE IF NOT EXISTS outputs (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	permalink  TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS output_assets (
	source      TEXT NOT NULL,
	destination TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT 'image',
	remote      INTEGER NOT NULL DEFAULT 0,
	UNIQUE(source, destination)
);

CREATE INDEX IF NOT EXISTS idx_passes_collection ON passes(collection, started_at);
CREATE INDEX IF NOT EXISTS idx_output_assets_destination ON output_assets(destination);
`

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
