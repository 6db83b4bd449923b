// CLASSIFICATION: COMMUNITY
// Filename: status.go v0.3
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package api

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"wolfgym/internal/gym"
)

// StatusResponse describes the gym.
type StatusResponse struct {
	Uptime string `json:"uptime"`
	Status string `json:"status"`
	Snapshot
}

// Status handles GET /api/status.
func Status(start time.Time, g Gym) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, StatusResponse{
			Uptime:   time.Since(start).Round(time.Second).String(),
			Status:   "ok",
			Snapshot: g.Snapshot(),
		})
	}
}

// EpisodeLister reads the episode log; *episodes.Recorder satisfies it.
type EpisodeLister interface {
	List(ctx context.Context, limit int) ([]gym.EpisodeSummary, error)
}

// Episodes handles GET /api/episodes?limit=n, newest first.
func Episodes(l EpisodeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		list, err := l.List(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []gym.EpisodeSummary{}
		}
		writeJSON(w, list)
	}
}

// Metrics counts control traffic. The reset limiter is optional.
type Metrics struct {
	start   time.Time
	limiter *rate.Limiter

	requests     atomic.Uint64
	screens      atomic.Uint64
	steps        atomic.Uint64
	stepTimeouts atomic.Uint64
	stepErrors   atomic.Uint64
	resetAllowed atomic.Uint64
	resetDenied  atomic.Uint64
}

// NewMetrics starts the clock. limiter may be nil for unlimited resets.
func NewMetrics(limiter *rate.Limiter) *Metrics {
	return &Metrics{start: time.Now(), limiter: limiter}
}

// CountRequest records one HTTP request.
func (m *Metrics) CountRequest() { m.requests.Add(1) }

// AllowReset takes a reset token and records the decision.
func (m *Metrics) AllowReset() bool {
	if m.limiter == nil || m.limiter.Allow() {
		m.resetAllowed.Add(1)
		return true
	}
	m.resetDenied.Add(1)
	return false
}

// Handler serves GET /api/metrics. hub may be nil.
func (m *Metrics) Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tokens := 0.0, 0, 0.0
		if m.limiter != nil {
			limit = float64(m.limiter.Limit())
			burst = m.limiter.Burst()
			tokens = m.limiter.Tokens()
		}
		observers := 0
		if hub != nil {
			observers = hub.Clients()
		}
		writeJSON(w, map[string]any{
			"requests_total":         m.requests.Load(),
			"start_time_seconds":     m.start.Unix(),
			"screens_total":          m.screens.Load(),
			"steps_total":            m.steps.Load(),
			"step_timeouts_total":    m.stepTimeouts.Load(),
			"step_errors_total":      m.stepErrors.Load(),
			"reset_limit_per_second": limit,
			"reset_burst_tokens":     burst,
			"reset_tokens_available": tokens,
			"reset_allowed_total":    m.resetAllowed.Load(),
			"reset_denied_total":     m.resetDenied.Load(),
			"observers":              observers,
		})
	}
}
