// CLASSIFICATION: COMMUNITY
// Filename: stack.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package tooling

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"wolfgym/internal/api"
	"wolfgym/internal/arena"
	"wolfgym/internal/config"
	"wolfgym/internal/engine"
	"wolfgym/internal/episodes"
	"wolfgym/internal/gym"
	"wolfgym/internal/health"
	"wolfgym/internal/logging"
	"wolfgym/internal/render"
	"wolfgym/internal/server"
)

// Stack is one fully wired gym: simulation, capture, HTTP and gRPC surfaces.
type Stack struct {
	mu  sync.Mutex
	cfg config.Config
	log *logging.Logger

	Arena    *arena.Arena
	State    *gym.State[arena.EnvironmentState]
	Pump     *gym.Pump[arena.Actions, arena.EnvironmentState]
	Loop     *engine.Loop
	Bridge   *api.Bridge[arena.EnvironmentState]
	Hub      *api.Hub
	Recorder *episodes.Recorder
	Health   *health.Server
	Server   *server.Server

	store episodes.Store
}

// NewStack builds every component from cfg. Nothing runs until Run.
func NewStack(ctx context.Context, cfg config.Config, log *logging.Logger) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Default()
	}
	ac, err := cfg.ArenaConfig()
	if err != nil {
		return nil, err
	}
	env, err := arena.New(ac)
	if err != nil {
		return nil, fmt.Errorf("arena: %w", err)
	}
	st, err := gym.NewState[arena.EnvironmentState](cfg.GymSettings())
	if err != nil {
		return nil, fmt.Errorf("gym state: %w", err)
	}
	store := episodes.NewStore(cfg.EpisodeDB)
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("episode store: %w", err)
	}

	s := &Stack{
		cfg:      cfg,
		log:      log,
		Arena:    env,
		State:    st,
		Hub:      api.NewHub(log),
		Recorder: episodes.NewRecorder(store, log, 0),
		Health:   health.New(log),
		store:    store,
	}
	s.Pump = gym.NewPump[arena.Actions, arena.EnvironmentState](st, env,
		gym.WithLogger(log),
		gym.WithStepHook(s.Hub.PublishStep),
		gym.WithEpisodeHook(func(sum gym.EpisodeSummary) {
			s.Recorder.Record(sum)
			s.Hub.PublishEpisode(sum)
		}),
		gym.WithPhaseHook(s.Health.SetPhase),
	)

	opts := []engine.Option{
		engine.WithTickRate(cfg.TickRate),
		engine.WithWake(st.Wake()),
		engine.WithLogger(log),
	}
	if st.Settings().RenderToBuffer {
		opts = append(opts, engine.WithCapture(render.NewCapturer(env, st, cfg.Width, cfg.Height)))
	} else {
		log.Infof("rendering disabled; screens stay blank")
	}
	s.Loop = engine.New(s.Pump, opts...)

	s.Bridge = api.NewBridge(st, s.Pump, cfg.StepTimeoutDuration())
	s.Server, err = server.New(server.Config{
		Bind:       cfg.Bind,
		Port:       cfg.Port,
		AuthUser:   cfg.AuthUser,
		AuthPass:   cfg.AuthPass,
		LogFile:    cfg.AccessLog,
		ResetRate:  cfg.ResetLimit(),
		ResetBurst: cfg.ResetBurst,
		Gym:        s.Bridge,
		Hub:        s.Hub,
		Episodes:   s.Recorder,
		Logger:     log,
	})
	if err != nil {
		episodes.CloseIfSupported(store)
		return nil, err
	}
	return s, nil
}

// Config returns the configuration the stack was built with.
func (s *Stack) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Apply takes the hot-reloadable part of next and logs what was ignored.
func (s *Stack) Apply(next config.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hot, cold := config.Diff(s.cfg, next)
	for _, key := range hot {
		switch key {
		case "pause_interval":
			if err := s.State.SetPauseInterval(next.PauseDuration()); err != nil {
				s.log.Warnf("pause_interval: %v", err)
				continue
			}
			s.cfg.PauseInterval = next.PauseInterval
		case "step_timeout":
			s.Bridge.SetStepTimeout(next.StepTimeoutDuration())
			s.cfg.StepTimeout = next.StepTimeout
		case "log_level":
			s.log.SetLevel(next.Level())
			s.cfg.LogLevel = next.LogLevel
		}
		s.log.Infof("config: %s updated", key)
	}
	for _, key := range cold {
		s.log.Warnf("config: %s changed; restart to apply", key)
	}
}

// Run serves the HTTP API on the configured address until ctx is done or
// a component fails.
func (s *Stack) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Server.Addr(), err)
	}
	return s.Serve(ctx, lis)
}

// Serve runs every component with the HTTP API on lis. A simulation
// failure stops the whole stack and is returned.
func (s *Stack) Serve(ctx context.Context, lis net.Listener) error {
	defer func() {
		if err := episodes.CloseIfSupported(s.store); err != nil {
			s.log.Warnf("close episode store: %v", err)
		}
	}()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		s.Recorder.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := s.Loop.Run(ctx); err != nil {
			return fmt.Errorf("simulation: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.Server.Serve(ctx, lis)
	})
	if s.cfg.GRPCPort > 0 {
		addr := net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.GRPCPort))
		g.Go(func() error {
			return s.Health.ListenAndServe(ctx, addr)
		})
	}
	return g.Wait()
}
