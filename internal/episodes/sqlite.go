// CLASSIFICATION: COMMUNITY
// Filename: sqlite.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package episodes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"wolfgym/internal/gym"
)

// SQLiteStore keeps summaries in a sqlite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, summary gym.EpisodeSummary) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	scores, err := json.Marshal(summary.Scores)
	if err != nil {
		return fmt.Errorf("encode scores %s: %w", summary.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (id, started_at, ended_at, steps, reason, scores)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			steps = excluded.steps,
			reason = excluded.reason,
			scores = excluded.scores
	`, summary.ID, summary.Start.UnixNano(), summary.End.UnixNano(), summary.Steps, summary.Reason, scores)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (gym.EpisodeSummary, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return gym.EpisodeSummary{}, false, err
	}
	row := db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, steps, reason, scores FROM episodes WHERE id = ?
	`, id)
	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gym.EpisodeSummary{}, false, nil
		}
		return gym.EpisodeSummary{}, false, err
	}
	return summary, true, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]gym.EpisodeSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, steps, reason, scores FROM episodes
		ORDER BY ended_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []gym.EpisodeSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (gym.EpisodeSummary, error) {
	var (
		summary    gym.EpisodeSummary
		start, end int64
		scores     []byte
	)
	if err := row.Scan(&summary.ID, &start, &end, &summary.Steps, &summary.Reason, &scores); err != nil {
		return gym.EpisodeSummary{}, err
	}
	summary.Start = time.Unix(0, start).UTC()
	summary.End = time.Unix(0, end).UTC()
	if err := json.Unmarshal(scores, &summary.Scores); err != nil {
		return gym.EpisodeSummary{}, fmt.Errorf("decode scores %s: %w", summary.ID, err)
	}
	return summary, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			reason TEXT NOT NULL,
			scores BLOB NOT NULL
		);
	`)
	return err
}
