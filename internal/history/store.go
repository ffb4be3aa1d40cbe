// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a local log of completed exchanges in a SQLite
// database under the config directory. It exists so past questions and
// answers survive backend session deletion and can be searched offline.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/akjha-17/ragchat-tui/internal/chat"
)

// schema is applied on open. Kept additive; never rewrite old rows.
const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	query       TEXT NOT NULL,
	answer      TEXT NOT NULL,
	sources     INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	asked_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_asked_at ON exchanges(asked_at);
CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id);
`

// Entry is one stored exchange.
type Entry struct {
	ID         int64
	SessionID  string
	Query      string
	Answer     string
	Sources    int
	DurationMS int64
	AskedAt    time.Time
}

// Store is the local exchange log. Safe for concurrent use; database/sql
// serializes access to the single connection pool.
type Store struct {
	db         *sql.DB
	maxEntries int
}

// Open opens (creating if needed) the history database at path.
// maxEntries caps the log; a non-positive cap disables pruning.
func Open(path string, maxEntries int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history database ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{db: db, maxEntries: maxEntries}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements chat.Recorder: it appends one completed exchange and
// prunes past the cap.
func (s *Store) Record(ctx context.Context, rec chat.ExchangeRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, query, answer, sources, duration_ms, asked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Query, rec.Answer, rec.Sources,
		rec.Duration.Milliseconds(), rec.AskedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	return s.prune(ctx)
}

// prune deletes the oldest rows beyond the configured cap.
func (s *Store) prune(ctx context.Context) error {
	if s.maxEntries <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM exchanges WHERE id NOT IN (
			SELECT id FROM exchanges ORDER BY id DESC LIMIT ?
		)`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, answer, sources, duration_ms, asked_at
		 FROM exchanges ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	return scanEntries(rows)
}

// Search returns entries whose query or answer contains the term, newest
// first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, query, answer, sources, duration_ms, asked_at
		 FROM exchanges
		 WHERE query LIKE ? OR answer LIKE ?
		 ORDER BY id DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("history search failed: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of stored exchanges.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history count failed: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &e.Answer,
			&e.Sources, &e.DurationMS, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("history scan failed: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows iteration error: %w", err)
	}
	return entries, nil
}
