// CLASSIFICATION: COMMUNITY
// Filename: recorder.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package episodes

import (
	"context"
	"sync/atomic"
	"time"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

const saveTimeout = 5 * time.Second

// Recorder moves episode summaries off the simulation goroutine into a Store.
type Recorder struct {
	store   Store
	log     *logging.Logger
	queue   chan gym.EpisodeSummary
	saved   atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder buffers up to size summaries.
func NewRecorder(store Store, log *logging.Logger, size int) *Recorder {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = logging.Default()
	}
	return &Recorder{store: store, log: log, queue: make(chan gym.EpisodeSummary, size)}
}

// Record queues a summary without blocking; it is a gym.WithEpisodeHook
// callback. A full queue drops the summary.
func (r *Recorder) Record(s gym.EpisodeSummary) {
	select {
	case r.queue <- s:
	default:
		r.dropped.Add(1)
		r.log.Warnf("episode %s dropped: recorder queue full", s.ID)
	}
}

// Run saves queued summaries until ctx is done, then drains the queue.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case s := <-r.queue:
			r.save(s)
		case <-ctx.Done():
			for {
				select {
				case s := <-r.queue:
					r.save(s)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) save(s gym.EpisodeSummary) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := r.store.Save(ctx, s); err != nil {
		r.log.Errorf("save episode %s: %v", s.ID, err)
		return
	}
	r.saved.Add(1)
	r.log.Debugf("episode %s saved (%s, %d steps)", s.ID, s.Reason, s.Steps)
}

// Saved counts summaries written to the store.
func (r *Recorder) Saved() uint64 { return r.saved.Load() }

// Dropped counts summaries lost to a full queue.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// List exposes the store listing for the HTTP API.
func (r *Recorder) List(ctx context.Context, limit int) ([]gym.EpisodeSummary, error) {
	return r.store.List(ctx, limit)
}
