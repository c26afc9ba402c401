// Package store keeps calendar-store snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"orgcal/internal/model"
	"orgcal/internal/source"
)

// Store is a SQLite-backed calendar-store snapshot. It implements
// source.Provider.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		uid TEXT NOT NULL,
		calendar TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Replace swaps every stored instance of calendar for events in one
// transaction.
func (s *Store) Replace(ctx context.Context, calendar string, events []model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE calendar = ?`, calendar); err != nil {
		return fmt.Errorf("clear calendar %q: %w", calendar, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (uid, calendar, title, start_at, end_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.UID, calendar, ev.Title, ev.Start.Unix(), ev.End.Unix()); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Query returns instances overlapping [q.Start, q.End] whose calendar passes
// the query's allow/deny lists, ordered by start.
func (s *Store) Query(ctx context.Context, q source.Query) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, calendar, title, start_at, end_at FROM events
		 WHERE end_at >= ? AND start_at <= ?
		 ORDER BY start_at, rowid`,
		q.Start.Unix(), q.End.Unix())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			ev         model.Event
			start, end int64
		)
		if err := rows.Scan(&ev.UID, &ev.Calendar, &ev.Title, &start, &end); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if !q.Allows(ev.Calendar) {
			continue
		}
		ev.Start = time.Unix(start, 0)
		ev.End = time.Unix(end, 0)
		out = append(out, ev)
	}
	return out, rows.Err()
}
