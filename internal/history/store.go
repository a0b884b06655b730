package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/snapcode/internal/apperr"
)

// Build is one row of the builds table.
type Build struct {
	ID          int64         `json:"id"`
	Trigger     string        `json:"trigger"`
	TriggerPath string        `json:"trigger_path,omitempty"`
	Output      string        `json:"output"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	Files       int           `json:"files"`
	Skipped     int           `json:"skipped"`
	Bytes       int64         `json:"bytes"`
	Checksum    string        `json:"checksum,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Store is the interface for build history operations. Consumers should
// depend on it rather than on *DB.
type Store interface {
	Record(b Build) (int64, error)
	List(limit int) ([]Build, error)
	Latest() (*Build, error)
	Close() error
}

// Verify *DB and Nop satisfy Store at compile time.
var (
	_ Store = (*DB)(nil)
	_ Store = Nop{}
)

const selectColumns = `id, trigger, trigger_path, output, started_at, duration_ms, files, skipped, bytes, checksum, error`

// Record inserts a build and returns its id.
func (db *DB) Record(b Build) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO builds (trigger, trigger_path, output, started_at, duration_ms, files, skipped, bytes, checksum, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Trigger, b.TriggerPath, b.Output, b.StartedAt.UTC(), b.Duration.Milliseconds(),
		b.Files, b.Skipped, b.Bytes, b.Checksum, b.Error)
	if err != nil {
		return 0, fmt.Errorf("history: record: %w", err)
	}
	return res.LastInsertId()
}

// List returns the most recent builds, newest first.
func (db *DB) List(limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`SELECT `+selectColumns+` FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Latest returns the newest build or apperr.ErrNotFound.
func (db *DB) Latest() (*Build, error) {
	row := db.conn.QueryRow(`SELECT ` + selectColumns + ` FROM builds ORDER BY id DESC LIMIT 1`)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (*Build, error) {
	var b Build
	var ms int64
	if err := s.Scan(&b.ID, &b.Trigger, &b.TriggerPath, &b.Output, &b.StartedAt, &ms,
		&b.Files, &b.Skipped, &b.Bytes, &b.Checksum, &b.Error); err != nil {
		return nil, err
	}
	b.Duration = time.Duration(ms) * time.Millisecond
	return &b, nil
}

// Nop is a Store that keeps nothing. It is used when history is disabled.
type Nop struct{}

func (Nop) Record(Build) (int64, error) { return 0, nil }

func (Nop) List(int) ([]Build, error) { return nil, nil }

func (Nop) Latest() (*Build, error) { return nil, apperr.ErrNotFound }

func (Nop) Close() error { return nil }
