// CLASSIFICATION: COMMUNITY
// Filename: episodes_test.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package episodes

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

func summary(i int) gym.EpisodeSummary {
	start := time.Date(2026, 10, 17, 12, 0, i, 0, time.UTC)
	return gym.EpisodeSummary{
		ID:     fmt.Sprintf("ep-%d", i),
		Start:  start,
		End:    start.Add(time.Duration(i+1) * time.Second),
		Steps:  10 * i,
		Scores: []float32{float32(i), 10},
		Reason: gym.ReasonRoundTimer,
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewStore(""),
		"sqlite": NewStore(filepath.Join(t.TempDir(), "episodes.db")),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init(ctx))
			t.Cleanup(func() { assert.NoError(t, CloseIfSupported(store)) })

			want := summary(2)
			require.NoError(t, store.Save(ctx, want))
			got, ok, err := store.Get(ctx, want.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Steps, got.Steps)
			assert.Equal(t, want.Reason, got.Reason)
			assert.Equal(t, want.Scores, got.Scores)
			assert.True(t, want.End.Equal(got.End))

			_, ok, err = store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreUpsertAndList(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init(ctx))
			t.Cleanup(func() { assert.NoError(t, CloseIfSupported(store)) })

			for i := 0; i < 3; i++ {
				require.NoError(t, store.Save(ctx, summary(i)))
			}
			updated := summary(1)
			updated.Reason = gym.ReasonReset
			require.NoError(t, store.Save(ctx, updated))

			all, err := store.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "ep-2", all[0].ID)

			top, err := store.List(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, top, 2)

			got, _, err := store.Get(ctx, "ep-1")
			require.NoError(t, err)
			assert.Equal(t, gym.ReasonReset, got.Reason)
		})
	}
}

func TestSQLiteRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, store.Save(context.Background(), summary(0)))
	assert.Error(t, NewSQLiteStore("").Init(context.Background()))
}

func TestRecorderSavesInBackground(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store, logging.Discard(), 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	rec.Record(summary(0))
	rec.Record(summary(1))
	require.Eventually(t, func() bool { return rec.Saved() == 2 }, time.Second, time.Millisecond)

	list, err := rec.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	cancel()
	<-done
}

func TestRecorderDropsWhenFull(t *testing.T) {
	rec := NewRecorder(NewMemoryStore(), logging.Discard(), 1)
	rec.Record(summary(0))
	rec.Record(summary(1))
	assert.EqualValues(t, 1, rec.Dropped())

	// Run drains what was queued before stopping.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)
	assert.EqualValues(t, 1, rec.Saved())
}
