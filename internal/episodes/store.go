// CLASSIFICATION: COMMUNITY
// Filename: store.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package episodes keeps a log of finished episodes.
package episodes

import (
	"context"

	"wolfgym/internal/gym"
)

// Store persists episode summaries.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, summary gym.EpisodeSummary) error
	Get(ctx context.Context, id string) (gym.EpisodeSummary, bool, error)
	// List returns up to limit summaries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]gym.EpisodeSummary, error)
}

// NewStore returns a sqlite store for a non-empty path and a memory store
// otherwise. The store is not initialised.
func NewStore(sqlitePath string) Store {
	if sqlitePath == "" {
		return NewMemoryStore()
	}
	return NewSQLiteStore(sqlitePath)
}

// CloseIfSupported closes stores that hold resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
