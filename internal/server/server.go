// CLASSIFICATION: COMMUNITY
// Filename: server.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package server exposes the gym over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"wolfgym/internal/api"
	"wolfgym/internal/logging"
)

// Config holds server configuration.
type Config struct {
	Bind     string
	Port     int
	AuthUser string
	AuthPass string
	LogFile  string

	// ResetRate limits POST /reset; zero means unlimited.
	ResetRate  rate.Limit
	ResetBurst int

	Gym      api.Gym
	Hub      *api.Hub
	Episodes api.EpisodeLister
	Logger   *logging.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	cfg     Config
	router  *chi.Mux
	metrics *api.Metrics
	log     *logging.Logger
}

// New returns an initialized server.
func New(cfg Config) (*Server, error) {
	if cfg.Gym == nil {
		return nil, errors.New("server: gym required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	var limiter *rate.Limiter
	if cfg.ResetRate > 0 {
		burst := cfg.ResetBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.ResetRate, burst)
	}
	s := &Server{cfg: cfg, metrics: api.NewMetrics(limiter), log: cfg.Logger}
	s.router = routes(cfg, s.metrics, time.Now())
	return s, nil
}

// Router returns the underlying router, useful for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Metrics returns the request counters.
func (s *Server) Metrics() *api.Metrics {
	return s.metrics
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Bind, fmt.Sprint(s.cfg.Port))
}

// Start listens on Addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, lis)
}

// Serve answers requests on lis until ctx is done. Requests in flight see
// their context cancelled on shutdown, so parked steps answer at once.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		ctxTo, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctxTo)
	}()
	s.log.Infof("gym listening on %s", lis.Addr())
	err := srv.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
