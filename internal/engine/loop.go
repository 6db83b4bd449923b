// CLASSIFICATION: COMMUNITY
// Filename: loop.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package engine owns the simulation goroutine: a fixed-rate loop that ticks
// the pump and captures frames.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

// Simulation is the per-tick driver, normally a *gym.Pump.
type Simulation interface {
	Tick(dt time.Duration)
	Phase() gym.Phase
}

// FrameCapture is the render stage run after every tick.
type FrameCapture interface {
	Capture(ctx context.Context) error
}

// Option configures a Loop.
type Option func(*Loop)

// WithCapture enables the render stage; without it the loop runs headless.
func WithCapture(c FrameCapture) Option {
	return func(l *Loop) { l.capture = c }
}

// WithTickRate sets ticks per second of wall and simulated time.
func WithTickRate(hz int) Option {
	return func(l *Loop) {
		if hz > 0 {
			l.period = time.Second / time.Duration(hz)
		}
	}
}

// WithWake runs an extra tick whenever the channel fires while the
// simulation is not running, so paused steps are picked up without waiting
// for the next frame.
func WithWake(ch <-chan struct{}) Option {
	return func(l *Loop) { l.wake = ch }
}

// WithLogger sets the loop logger.
func WithLogger(log *logging.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// Loop drives a Simulation at a fixed rate.
type Loop struct {
	sim     Simulation
	capture FrameCapture
	period  time.Duration
	wake    <-chan struct{}
	log     *logging.Logger
	ticks   atomic.Uint64
}

// New returns a 60 Hz headless loop unless options say otherwise.
func New(sim Simulation, opts ...Option) *Loop {
	l := &Loop{sim: sim, period: time.Second / 60, log: logging.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ticks counts completed ticks.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Run ticks until ctx is cancelled. A panic in the simulation or a failed
// frame readback stops the loop with an error; the process must not carry on
// with a half-updated world.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	l.log.Infof("simulation loop started at %s per tick", l.period)
	for {
		select {
		case <-ctx.Done():
			l.log.Infof("simulation loop stopped after %d ticks", l.Ticks())
			return nil
		case <-ticker.C:
		case <-l.wake:
			if l.sim.Phase() == gym.PhaseRunning {
				continue
			}
		}
		if err := l.step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			l.log.Errorf("simulation loop: %v", err)
			return err
		}
	}
}

func (l *Loop) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulation panic: %v", r)
		}
	}()
	l.sim.Tick(l.period)
	if l.capture != nil {
		if err := l.capture.Capture(ctx); err != nil {
			return fmt.Errorf("frame capture: %w", err)
		}
	}
	l.ticks.Add(1)
	return nil
}
