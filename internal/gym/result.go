// CLASSIFICATION: COMMUNITY
// Filename: result.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package gym

import "errors"

var (
	// ErrStepTimeout is returned when no decision point was reached in time.
	ErrStepTimeout = errors.New("step timed out")
	// ErrStepSuperseded is returned to a step whose action was replaced by a
	// later submission before the simulation took it.
	ErrStepSuperseded = errors.New("step superseded")
	// ErrStepDropped is returned to a step whose action was discarded by a reset.
	ErrStepDropped = errors.New("step dropped by reset")
	// ErrResetTimeout is returned when a reset was not acknowledged in time.
	ErrResetTimeout = errors.New("reset timed out")
	// ErrUnknownAgent is returned for an agent index outside the configured range.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrTooManyActions is returned when a step carries more actions than agents.
	ErrTooManyActions = errors.New("more actions than agents")
	// ErrTerminationLatched is returned when clearing a termination flag outside a reset.
	ErrTerminationLatched = errors.New("termination can only be cleared by reset")
	// ErrPoisoned marks a state whose lock holder panicked mid-update.
	ErrPoisoned = errors.New("gym state poisoned")
)

// StepResult is what one agent observes after a step.
type StepResult struct {
	Reward       float32 `json:"reward"`
	IsTerminated bool    `json:"is_terminated"`
	Error        string  `json:"error,omitempty"`
}

// OK reports whether the agent's action was recognised.
func (r StepResult) OK() bool { return r.Error == "" }

// StepEvent is emitted each time the pump publishes a step result.
type StepEvent struct {
	Episode string       `json:"episode"`
	Ticket  uint64       `json:"ticket"`
	Step    int          `json:"step"`
	Results []StepResult `json:"results"`
}
