// CLASSIFICATION: COMMUNITY
// Filename: bridge.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package api holds the control-side HTTP handlers of the gym.
package api

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"wolfgym/internal/gym"
)

// Gym is what the handlers need from the shared state.
type Gym interface {
	NumAgents() int
	Screen(agent int) (*image.RGBA, error)
	// Step submits one action per agent (nil for none) and waits for the
	// result. On error the returned results are a no-op answer.
	Step(ctx context.Context, actions []*string) ([]gym.StepResult, error)
	Reset(ctx context.Context, wait bool) error
	EnvState() any
	Snapshot() Snapshot
}

// PhaseSource reports the pump phase; *gym.Pump satisfies it.
type PhaseSource interface {
	Phase() gym.Phase
}

// Snapshot is a point-in-time view of the gym for status reporting.
type Snapshot struct {
	Phase      string `json:"phase"`
	Episode    string `json:"episode"`
	Steps      uint64 `json:"steps"`
	Frames     uint64 `json:"frames"`
	Paused     bool   `json:"paused"`
	NumAgents  int    `json:"num_agents"`
	Terminated []bool `json:"terminated"`

	// ResetPending is set from a reset request until the simulation picks it up.
	ResetPending bool `json:"reset_pending"`
	// ResetDone reports whether the last requested reset has completed.
	ResetDone    bool `json:"reset_done"`
}

// Bridge adapts a *gym.State to Gym.
type Bridge[O any] struct {
	state   *gym.State[O]
	phase   PhaseSource
	timeout atomic.Int64
}

// NewBridge wraps st. phase may be nil.
func NewBridge[O any](st *gym.State[O], phase PhaseSource, stepTimeout time.Duration) *Bridge[O] {
	b := &Bridge[O]{state: st, phase: phase}
	b.SetStepTimeout(stepTimeout)
	return b
}

// SetStepTimeout bounds how long Step and a waiting Reset park. Zero waits
// until the request context ends.
func (b *Bridge[O]) SetStepTimeout(d time.Duration) { b.timeout.Store(int64(d)) }

// StepTimeout returns the current bound.
func (b *Bridge[O]) StepTimeout() time.Duration { return time.Duration(b.timeout.Load()) }

func (b *Bridge[O]) NumAgents() int { return b.state.Settings().NumAgents }

func (b *Bridge[O]) Screen(agent int) (*image.RGBA, error) { return b.state.Screen(agent) }

func (b *Bridge[O]) Step(ctx context.Context, actions []*string) ([]gym.StepResult, error) {
	ticket, err := b.state.SubmitActions(actions)
	if err != nil {
		return b.noop(), err
	}
	return b.state.WaitResult(ctx, ticket, b.StepTimeout())
}

func (b *Bridge[O]) Reset(ctx context.Context, wait bool) error {
	seq := b.state.RequestReset()
	if !wait {
		return nil
	}
	return b.state.WaitReset(ctx, seq, b.StepTimeout())
}

func (b *Bridge[O]) EnvState() any { return b.state.EnvState() }

func (b *Bridge[O]) Snapshot() Snapshot {
	phase := "unknown"
	if b.phase != nil {
		phase = b.phase.Phase().String()
	}
	return Snapshot{
		Phase:        phase,
		Episode:      b.state.Episode(),
		Steps:        b.state.Steps(),
		Frames:       b.state.Frames(),
		Paused:       b.state.Paused(),
		NumAgents:    b.NumAgents(),
		Terminated:   b.state.Terminated(),
		ResetPending: b.state.ResetPending(),
		ResetDone:    b.state.ResetAcknowledged(),
	}
}

func (b *Bridge[O]) noop() []gym.StepResult {
	terminated := b.state.Terminated()
	results := make([]gym.StepResult, len(terminated))
	for i, t := range terminated {
		results[i].IsTerminated = t
	}
	return results
}
