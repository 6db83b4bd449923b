// CLASSIFICATION: COMMUNITY
// Filename: memory.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package episodes

import (
	"context"
	"sync"

	"wolfgym/internal/gym"
)

// MemoryStore keeps summaries in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]gym.EpisodeSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]gym.EpisodeSummary)}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) Save(_ context.Context, summary gym.EpisodeSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[summary.ID]; !ok {
		s.order = append(s.order, summary.ID)
	}
	summary.Scores = append([]float32(nil), summary.Scores...)
	s.byID[summary.ID] = summary
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (gym.EpisodeSummary, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.byID[id]
	return summary, ok, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]gym.EpisodeSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]gym.EpisodeSummary, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out, nil
}
