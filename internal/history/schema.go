// Package history provides a SQLite-backed log of snapshot builds.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS builds (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	trigger      TEXT     NOT NULL,
	trigger_path TEXT     NOT NULL DEFAULT '',
	output       TEXT     NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	duration_ms  INTEGER  NOT NULL DEFAULT 0,
	files        INTEGER  NOT NULL DEFAULT 0,
	skipped      INTEGER  NOT NULL DEFAULT 0,
	bytes        INTEGER  NOT NULL DEFAULT 0,
	checksum     TEXT     NOT NULL DEFAULT '',
	error        TEXT     NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
`

// DB wraps a sql.DB with history-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
