// CLASSIFICATION: COMMUNITY
// Filename: handlers.go v0.3
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

const maxStepBody = 64 << 10

// Screen handles GET /screen.png. ?agent=i selects the agent, default 0.
func Screen(g Gym, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := 0
		if v := r.URL.Query().Get("agent"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "invalid agent", http.StatusBadRequest)
				return
			}
			agent = n
		}
		img, err := g.Screen(agent)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, gym.ErrUnknownAgent) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		m.screens.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Write(buf.Bytes())
	}
}

// Step handles POST /step. The body is a bare action token for agent 0 or a
// JSON array with one token (or null) per agent; the answer has the same
// shape. Every request gets a 200: bad input and timeouts come back as a
// no-op result with the error field set.
func Step(g Gym, m *Metrics, log logging.Printer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxStepBody))
		if err != nil {
			log.Printf("step: read body: %v", err)
			body = nil
		}
		actions, vector := parseStepBody(body)
		results, err := g.Step(r.Context(), actions)
		m.steps.Add(1)
		if err != nil {
			switch {
			case errors.Is(err, gym.ErrStepTimeout):
				m.stepTimeouts.Add(1)
			case errors.Is(err, context.Canceled):
			default:
				m.stepErrors.Add(1)
			}
			log.Printf("step: %v", err)
			results = markFailed(results, g.NumAgents(), err)
		}
		if vector {
			writeJSON(w, results)
			return
		}
		writeJSON(w, results[0])
	}
}

func parseStepBody(body []byte) ([]*string, bool) {
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var actions []*string
		if err := json.Unmarshal(trimmed, &actions); err == nil {
			return actions, true
		}
	}
	// anything else, malformed JSON included, is one token for agent 0 and
	// fails action parsing in the pump if it is not a known token
	token := string(body)
	return []*string{&token}, false
}

func markFailed(results []gym.StepResult, n int, err error) []gym.StepResult {
	if len(results) == 0 {
		results = make([]gym.StepResult, n)
	}
	for i := range results {
		if results[i].Error == "" {
			results[i].Error = err.Error()
		}
	}
	return results
}

// Reset handles POST /reset. It answers "ok" at once unless ?wait=true, in
// which case it waits until the new round has been spawned.
func Reset(g Gym, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wait := r.URL.Query().Get("wait") == "true"
		if err := g.Reset(r.Context(), wait); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, gym.ErrResetTimeout) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			http.Error(w, err.Error(), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`"ok"`))
	}
}

// State handles GET /state.json with the last environment snapshot.
func State(g Gym) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, g.EnvState())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
