// CLASSIFICATION: COMMUNITY
// Filename: state.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package gym turns a frame-stepped simulation into a turn-based environment
// that an external agent drives one step at a time.
//
// State is the only place the simulation goroutine and the control goroutines
// exchange data. Every field is guarded by one mutex and no critical section
// blocks: waiters park on a broadcast channel after releasing the lock.
package gym

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// State is the shared record between the simulation and the control API.
// O is the structured observation snapshot type.
type State[O any] struct {
	mu       sync.Mutex
	poisoned bool

	settings     Settings
	renderTarget any
	screens      []*image.RGBA
	frames       uint64

	paused bool

	nextTicket    uint64
	pendingTicket uint64
	pending       []*string

	rewards    [][]float32
	sampled    []bool
	terminated []bool

	resetRequested    bool
	resetAcknowledged bool
	resetting         bool
	resetSeq          uint64
	episode           string

	envState O

	// per-ticket answers, taken by the waiter
	outcomes map[uint64]outcome
	steps    uint64

	// closed and replaced whenever a result or a reset acknowledgement is published
	notify chan struct{}
	wake   chan struct{}
}

// NewState builds a State with blank screens for every agent.
func NewState[O any](settings Settings) (*State[O], error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	n := settings.NumAgents
	s := &State[O]{
		settings:   settings,
		screens:    make([]*image.RGBA, n),
		rewards:    make([][]float32, n),
		sampled:    make([]bool, n),
		terminated: make([]bool, n),
		outcomes:   make(map[uint64]outcome),
		notify:     make(chan struct{}),
		wake:       make(chan struct{}, 1),
	}
	for i := range s.screens {
		s.screens[i] = image.NewRGBA(image.Rect(0, 0, settings.Width, settings.Height))
	}
	return s, nil
}

func (s *State[O]) lock() {
	s.mu.Lock()
	if s.poisoned {
		s.mu.Unlock()
		panic(ErrPoisoned)
	}
}

// unlock must be deferred directly so a panic inside the critical section
// marks the state poisoned before the lock is released.
func (s *State[O]) unlock() {
	if r := recover(); r != nil {
		s.poisoned = true
		s.mu.Unlock()
		panic(r)
	}
	s.mu.Unlock()
}

func (s *State[O]) checkAgent(agent int) error {
	if agent < 0 || agent >= s.settings.NumAgents {
		return fmt.Errorf("%w: %d", ErrUnknownAgent, agent)
	}
	return nil
}

func (s *State[O]) broadcastLocked() {
	close(s.notify)
	s.notify = make(chan struct{})
}

func (s *State[O]) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Settings returns the current settings.
func (s *State[O]) Settings() Settings {
	s.lock()
	defer s.unlock()
	return s.settings
}

// SetPauseInterval changes the simulated time between decision points.
func (s *State[O]) SetPauseInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("pause_interval must be positive, got %s", d)
	}
	s.lock()
	defer s.unlock()
	s.settings.PauseInterval = d
	return nil
}

// SetRenderTarget stores the opaque off-screen surface handle.
func (s *State[O]) SetRenderTarget(t any) {
	s.lock()
	defer s.unlock()
	s.renderTarget = t
}

// RenderTarget returns the handle stored by SetRenderTarget.
func (s *State[O]) RenderTarget() any {
	s.lock()
	defer s.unlock()
	return s.renderTarget
}

// SetScreen stores a copy of img as the agent's latest frame.
func (s *State[O]) SetScreen(agent int, img *image.RGBA) error {
	if img == nil {
		return fmt.Errorf("nil frame for agent %d", agent)
	}
	cp := cloneRGBA(img)
	s.lock()
	defer s.unlock()
	if err := s.checkAgent(agent); err != nil {
		return err
	}
	s.screens[agent] = cp
	s.frames++
	return nil
}

// Screen returns a copy of the agent's latest frame.
func (s *State[O]) Screen(agent int) (*image.RGBA, error) {
	s.lock()
	defer s.unlock()
	if err := s.checkAgent(agent); err != nil {
		return nil, err
	}
	return cloneRGBA(s.screens[agent]), nil
}

// Frames counts captured frames since start.
func (s *State[O]) Frames() uint64 {
	s.lock()
	defer s.unlock()
	return s.frames
}

// Paused reports whether the simulation is blocked awaiting control.
func (s *State[O]) Paused() bool {
	s.lock()
	defer s.unlock()
	return s.paused
}

// SetPaused is called by the pump on every decision point transition.
func (s *State[O]) SetPaused(paused bool) {
	s.lock()
	defer s.unlock()
	s.paused = paused
}

// SetReward records the agent's cumulative score for the current step. The
// first call in a step appends a sample, later calls overwrite it.
func (s *State[O]) SetReward(agent int, value float32) error {
	s.lock()
	defer s.unlock()
	if err := s.checkAgent(agent); err != nil {
		return err
	}
	if s.sampled[agent] && len(s.rewards[agent]) > 0 {
		s.rewards[agent][len(s.rewards[agent])-1] = value
		return nil
	}
	s.rewards[agent] = append(s.rewards[agent], value)
	s.sampled[agent] = true
	return nil
}

// Rewards returns a copy of the agent's reward samples for this episode.
func (s *State[O]) Rewards(agent int) ([]float32, error) {
	s.lock()
	defer s.unlock()
	if err := s.checkAgent(agent); err != nil {
		return nil, err
	}
	return append([]float32(nil), s.rewards[agent]...), nil
}

// SetTerminated flags the end of an agent's episode. Once set, it stays set
// until the next reset.
func (s *State[O]) SetTerminated(agent int, flag bool) error {
	s.lock()
	defer s.unlock()
	if err := s.checkAgent(agent); err != nil {
		return err
	}
	if !flag && s.terminated[agent] && !s.resetting {
		return ErrTerminationLatched
	}
	s.terminated[agent] = flag
	return nil
}

// Terminated returns a copy of the per-agent termination flags.
func (s *State[O]) Terminated() []bool {
	s.lock()
	defer s.unlock()
	return append([]bool(nil), s.terminated...)
}

// SetEnvState replaces the structured snapshot.
func (s *State[O]) SetEnvState(o O) {
	s.lock()
	defer s.unlock()
	s.envState = o
}

// EnvState returns the last snapshot.
func (s *State[O]) EnvState() O {
	s.lock()
	defer s.unlock()
	return s.envState
}

// Episode returns the id of the running episode.
func (s *State[O]) Episode() string {
	s.lock()
	defer s.unlock()
	return s.episode
}

// Steps counts published step results since start.
func (s *State[O]) Steps() uint64 {
	s.lock()
	defer s.unlock()
	return s.steps
}

// Wake fires whenever the control side submits an action or a reset.
func (s *State[O]) Wake() <-chan struct{} {
	return s.wake
}

// outcomeWindow bounds how many published tickets are kept for waiters that
// never came back for them.
const outcomeWindow = 64

type outcome struct {
	results []StepResult
	err     error
}

// SubmitActions queues raw per-agent actions for the next decision point and
// returns the ticket the result will be published under. A nil entry means
// the agent receives no action. An unconsumed earlier submission is replaced
// and its waiter answered with ErrStepSuperseded.
func (s *State[O]) SubmitActions(raw []*string) (uint64, error) {
	s.lock()
	defer s.unlock()
	if len(raw) > s.settings.NumAgents {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyActions, len(raw), s.settings.NumAgents)
	}
	actions := make([]*string, s.settings.NumAgents)
	for i, a := range raw {
		if a != nil {
			v := *a
			actions[i] = &v
		}
	}
	s.dropPendingLocked(ErrStepSuperseded)
	s.nextTicket++
	s.pendingTicket = s.nextTicket
	s.pending = actions
	s.nudge()
	return s.pendingTicket, nil
}

// ReceiveActions consumes the pending submission, if any.
func (s *State[O]) ReceiveActions() (uint64, []*string, bool) {
	s.lock()
	defer s.unlock()
	if s.pendingTicket == 0 {
		return 0, nil, false
	}
	ticket, actions := s.pendingTicket, s.pending
	s.pendingTicket, s.pending = 0, nil
	return ticket, actions, true
}

// dropPendingLocked answers an unconsumed submission with a no-op and err.
func (s *State[O]) dropPendingLocked(err error) {
	if s.pendingTicket == 0 {
		return
	}
	s.outcomes[s.pendingTicket] = outcome{results: s.noopLocked(), err: err}
	s.pendingTicket, s.pending = 0, nil
	s.broadcastLocked()
}

// withdraw drops the submission for ticket if the pump has not taken it yet.
func (s *State[O]) withdraw(ticket uint64) bool {
	s.lock()
	defer s.unlock()
	if s.pendingTicket != ticket {
		return false
	}
	s.pendingTicket, s.pending = 0, nil
	return true
}

// PublishResult seals the current reward samples, computes each agent's
// reward delta and wakes the control side waiting on ticket. errs carries the
// per-agent action parse failures and may be nil.
func (s *State[O]) PublishResult(ticket uint64, errs []error) []StepResult {
	s.lock()
	defer s.unlock()
	results := make([]StepResult, s.settings.NumAgents)
	for i := range results {
		results[i] = StepResult{
			Reward:       rewardDelta(s.rewards[i]),
			IsTerminated: s.terminated[i],
		}
		if i < len(errs) && errs[i] != nil {
			results[i].Error = errs[i].Error()
		}
		s.sampled[i] = false
	}
	s.outcomes[ticket] = outcome{results: results}
	for t := range s.outcomes {
		if t+outcomeWindow < ticket {
			delete(s.outcomes, t)
		}
	}
	s.steps++
	s.broadcastLocked()
	return append([]StepResult(nil), results...)
}

func rewardDelta(samples []float32) float32 {
	switch n := len(samples); n {
	case 0:
		return 0
	case 1:
		return samples[0]
	default:
		return samples[n-1] - samples[n-2]
	}
}

// noopLocked is the answer for a step that never ran.
func (s *State[O]) noopLocked() []StepResult {
	results := make([]StepResult, s.settings.NumAgents)
	for i := range results {
		results[i].IsTerminated = s.terminated[i]
	}
	return results
}

// WaitResult parks until the result for ticket is published, ctx is done or
// timeout elapses. On timeout the submission is withdrawn when still pending
// and a no-op result is returned together with ErrStepTimeout.
func (s *State[O]) WaitResult(ctx context.Context, ticket uint64, timeout time.Duration) ([]StepResult, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		o, ch, done := s.pollResult(ticket)
		if done {
			return o.results, o.err
		}
		select {
		case <-ch:
		case <-deadline:
			s.withdraw(ticket)
			return s.noop(), ErrStepTimeout
		case <-ctx.Done():
			s.withdraw(ticket)
			return s.noop(), ctx.Err()
		}
	}
}

func (s *State[O]) pollResult(ticket uint64) (outcome, <-chan struct{}, bool) {
	s.lock()
	defer s.unlock()
	if o, ok := s.outcomes[ticket]; ok {
		delete(s.outcomes, ticket)
		o.results = append([]StepResult(nil), o.results...)
		return o, nil, true
	}
	return outcome{}, s.notify, false
}

func (s *State[O]) noop() []StepResult {
	s.lock()
	defer s.unlock()
	return s.noopLocked()
}

// RequestReset asks the simulation to start a new episode and returns the
// acknowledgement sequence that will satisfy it. Repeated requests before
// the pump picks them up, or while it is resetting, collapse into one.
func (s *State[O]) RequestReset() uint64 {
	s.lock()
	defer s.unlock()
	if s.resetting {
		return s.resetSeq + 1
	}
	s.resetRequested = true
	s.resetAcknowledged = false
	s.nudge()
	return s.resetSeq + 1
}

// ReceiveResetRequest consumes a pending reset request.
func (s *State[O]) ReceiveResetRequest() bool {
	s.lock()
	defer s.unlock()
	if !s.resetRequested {
		return false
	}
	s.resetRequested = false
	s.resetting = true
	return true
}

// ResetPending reports whether a reset was requested and not yet picked up.
func (s *State[O]) ResetPending() bool {
	s.lock()
	defer s.unlock()
	return s.resetRequested
}

// AcknowledgeReset clears the per-episode record once the world has been
// respawned and records the new episode id. A submission still pending from
// the previous episode is answered with ErrStepDropped.
func (s *State[O]) AcknowledgeReset(episode string) {
	s.lock()
	defer s.unlock()
	for i := range s.rewards {
		s.rewards[i] = nil
		s.sampled[i] = false
		s.terminated[i] = false
	}
	s.dropPendingLocked(ErrStepDropped)
	s.resetting = false
	s.resetAcknowledged = true
	s.resetSeq++
	s.paused = false
	s.episode = episode
	s.broadcastLocked()
}

// ResetAcknowledged reports whether the last requested reset has completed.
func (s *State[O]) ResetAcknowledged() bool {
	s.lock()
	defer s.unlock()
	return s.resetAcknowledged
}

// WaitReset parks until the acknowledgement sequence reaches seq.
func (s *State[O]) WaitReset(ctx context.Context, seq uint64, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		ch, done := s.pollReset(seq)
		if done {
			return nil
		}
		select {
		case <-ch:
		case <-deadline:
			return ErrResetTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *State[O]) pollReset(seq uint64) (<-chan struct{}, bool) {
	s.lock()
	defer s.unlock()
	if s.resetSeq >= seq {
		return nil, true
	}
	return s.notify, false
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := &image.RGBA{
		Pix:    append([]uint8(nil), src.Pix...),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	return dst
}
