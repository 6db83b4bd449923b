// CLASSIFICATION: COMMUNITY
// Filename: health.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package health publishes the gym's readiness over the standard gRPC health
// protocol so trainers and orchestrators can probe it without HTTP.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

// Service is the health service name of the gym. It reports NOT_SERVING
// while a round is over and waiting for a reset.
const Service = "wolfgym.Gym"

// Server serves grpc.health.v1.Health.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *logging.Logger
}

// New returns a server that reports SERVING until told otherwise.
func New(log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	s := &Server{grpc: grpc.NewServer(), health: health.NewServer(), log: log}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(Service, healthpb.HealthCheckResponse_SERVING)
	return s
}

// SetPhase maps a pump phase onto the gym service status. It is a
// gym.WithPhaseHook callback.
func (s *Server) SetPhase(p gym.Phase) {
	status := healthpb.HealthCheckResponse_SERVING
	if p == gym.PhaseRoundOver {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(Service, status)
}

// Serve accepts connections on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
	}()
	s.log.Infof("health service listening on %s", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Probe asks the health service at target whether the gym is serving.
// Extra dial options (such as a bufconn dialer) are appended.
func Probe(ctx context.Context, target string, timeout time.Duration, opts ...grpc.DialOption) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
