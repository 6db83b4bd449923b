// CLASSIFICATION: COMMUNITY
// Filename: routes.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package server

import (
	"fmt"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wolfgym/internal/api"
	"wolfgym/internal/logging"
)

func routes(cfg Config, metrics *api.Metrics, start time.Time) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(countRequests(metrics))
	if cfg.LogFile != "" {
		r.Use(accessLogger(cfg.LogFile, cfg.Logger))
	}

	r.Get("/screen.png", api.Screen(cfg.Gym, metrics))
	r.Get("/state.json", api.State(cfg.Gym))
	r.Get("/api/status", api.Status(start, cfg.Gym))
	r.Get("/api/metrics", metrics.Handler(cfg.Hub))
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.Handle)
	}
	if cfg.Episodes != nil {
		r.Get("/api/episodes", api.Episodes(cfg.Episodes))
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthUser != "" {
			r.Use(middleware.BasicAuth("wolfgym", map[string]string{cfg.AuthUser: cfg.AuthPass}))
		}
		r.Post("/step", api.Step(cfg.Gym, metrics, cfg.Logger))
		r.With(resetLimit(metrics)).Post("/reset", api.Reset(cfg.Gym, metrics))
	})
	return r
}

func countRequests(m *api.Metrics) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			m.CountRequest()
			next.ServeHTTP(w, r)
		})
	}
}

func resetLimit(m *api.Metrics) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			if !m.AllowReset() {
				stdhttp.Error(w, "reset rate limited", stdhttp.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessLogger(path string, log *logging.Logger) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Warnf("open access log: %v", err)
			return next
		}
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			begin := time.Now()
			next.ServeHTTP(ww, r)
			fmt.Fprintf(f, "%s %s %s %d %s\n", r.RemoteAddr, r.Method, r.URL.Path, ww.Status(), time.Since(begin).Round(time.Microsecond))
		})
	}
}
