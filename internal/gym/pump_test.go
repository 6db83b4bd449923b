// CLASSIFICATION: COMMUNITY
// Filename: pump_test.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package gym

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolfgym/internal/logging"
)

const tick = 10 * time.Millisecond

type fakeEnv struct {
	n        int
	applied  [][]string
	scores   []float32
	dead     []bool
	expired  bool
	resets   int
	advanced time.Duration
	// scoreOnShoot is added to the shooter's score on the next Advance.
	scoreOnShoot float32
	shots        []bool
}

func newFakeEnv(n int) *fakeEnv {
	return &fakeEnv{n: n, applied: make([][]string, n), scores: make([]float32, n), dead: make([]bool, n), shots: make([]bool, n)}
}

func (f *fakeEnv) NumAgents() int { return f.n }
func (f *fakeEnv) Idle() string   { return "IDLE" }

func (f *fakeEnv) ParseAction(raw string) (string, error) {
	switch raw {
	case "":
		return "IDLE", nil
	case "IDLE", "FORWARD", "SHOOT":
		return raw, nil
	}
	return "", fmt.Errorf("unknown action %q", raw)
}

func (f *fakeEnv) Apply(agent int, action string) {
	f.applied[agent] = append(f.applied[agent], action)
	f.shots[agent] = action == "SHOOT"
}

func (f *fakeEnv) Advance(dt time.Duration) {
	f.advanced += dt
	for i, shot := range f.shots {
		if shot {
			f.scores[i] += f.scoreOnShoot
			f.shots[i] = false
		}
	}
}

func (f *fakeEnv) Score(agent int) float32 { return f.scores[agent] }
func (f *fakeEnv) Dead(agent int) bool     { return f.dead[agent] }
func (f *fakeEnv) RoundExpired() bool      { return f.expired }

func (f *fakeEnv) Snapshot() string {
	return "advanced=" + f.advanced.String() + " resets=" + strconv.Itoa(f.resets)
}

func (f *fakeEnv) Reset() {
	f.resets++
	f.scores = make([]float32, f.n)
	f.dead = make([]bool, f.n)
	f.expired = false
}

type harness struct {
	t        *testing.T
	st       *State[string]
	env      *fakeEnv
	pump     *Pump[string, string]
	episodes []EpisodeSummary
	events   []StepEvent
}

func newHarness(t *testing.T, agents int) *harness {
	t.Helper()
	st, err := NewState[string](Settings{Width: 4, Height: 4, NumAgents: agents, PauseInterval: 5 * tick})
	require.NoError(t, err)
	h := &harness{t: t, st: st, env: newFakeEnv(agents)}
	ids := 0
	h.pump = NewPump[string, string](st, h.env,
		WithLogger(logging.Discard()),
		WithEpisodeIDs(func() string { ids++; return "ep-" + strconv.Itoa(ids) }),
		WithEpisodeHook(func(s EpisodeSummary) { h.episodes = append(h.episodes, s) }),
		WithStepHook(func(e StepEvent) { h.events = append(h.events, e) }),
	)
	return h
}

// runUntilPaused ticks until the pump leaves the running phase.
func (h *harness) runUntilPaused() {
	h.t.Helper()
	for i := 0; i < 100 && h.pump.Phase() == PhaseRunning; i++ {
		h.pump.Tick(tick)
	}
	require.NotEqual(h.t, PhaseRunning, h.pump.Phase())
}

// step submits actions and drives the simulation until the result is out.
func (h *harness) step(actions ...*string) []StepResult {
	h.t.Helper()
	ticket, err := h.st.SubmitActions(actions)
	require.NoError(h.t, err)
	for i := 0; i < 100; i++ {
		if h.answered(ticket) {
			break
		}
		h.pump.Tick(tick)
	}
	res, err := h.st.WaitResult(context.Background(), ticket, time.Millisecond)
	require.NoError(h.t, err)
	return res
}

// answered reports whether ticket has an outcome waiting, without taking it.
func (h *harness) answered(ticket uint64) bool {
	h.st.lock()
	defer h.st.unlock()
	_, ok := h.st.outcomes[ticket]
	return ok
}

func TestPumpPausesAtInterval(t *testing.T) {
	h := newHarness(t, 1)
	for i := 0; i < 4; i++ {
		h.pump.Tick(tick)
		assert.Equal(t, PhaseRunning, h.pump.Phase())
	}
	h.pump.Tick(tick)
	assert.Equal(t, PhasePausedForControl, h.pump.Phase())
	assert.True(t, h.st.Paused())
	assert.Equal(t, "advanced=50ms resets=0", h.st.EnvState())

	// paused ticks do not advance the world
	h.pump.Tick(tick)
	h.pump.Tick(tick)
	assert.Equal(t, 50*time.Millisecond, h.env.advanced)
	assert.Empty(t, h.events, "no step was in flight")
}

func TestPumpAppliesEachActionOnce(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	for i := 0; i < 3; i++ {
		h.step(strp("FORWARD"))
		assert.Equal(t, PhasePausedForControl, h.pump.Phase())
	}
	assert.Equal(t, []string{"FORWARD", "FORWARD", "FORWARD"}, h.env.applied[0])
	assert.Len(t, h.events, 3)
}

func TestPumpResultReflectsSubmittedAction(t *testing.T) {
	h := newHarness(t, 1)
	h.env.scoreOnShoot = 10
	h.runUntilPaused()

	res := h.step(strp("SHOOT"))
	assert.Equal(t, float32(10), res[0].Reward)
	res = h.step(strp("FORWARD"))
	assert.Equal(t, float32(0), res[0].Reward)
	res = h.step(strp("SHOOT"))
	assert.Equal(t, float32(10), res[0].Reward)

	rewards, _ := h.st.Rewards(0)
	assert.Equal(t, []float32{10, 10, 20}, rewards)
}

func TestPumpEmptyActionIsNoop(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	res := h.step(strp(""))
	assert.Equal(t, StepResult{Reward: 0, IsTerminated: false}, res[0])
	assert.True(t, res[0].OK())
	assert.Equal(t, []string{"IDLE"}, h.env.applied[0])
}

func TestPumpUnknownActionFlagsFailure(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	res := h.step(strp("JUMP"))
	assert.False(t, res[0].OK())
	assert.Contains(t, res[0].Error, "JUMP")
	assert.False(t, res[0].IsTerminated)
	assert.Equal(t, []string{"IDLE"}, h.env.applied[0], "unknown action degrades to idle")
}

func TestPumpTerminatesSingleAgent(t *testing.T) {
	h := newHarness(t, 2)
	h.runUntilPaused()
	h.env.dead[0] = true
	res := h.step(strp("FORWARD"), strp("FORWARD"))
	assert.True(t, res[0].IsTerminated)
	assert.False(t, res[1].IsTerminated)
	assert.Equal(t, PhasePausedForControl, h.pump.Phase())

	// a dead agent is never driven and stays terminated
	res = h.step(strp("FORWARD"), strp("FORWARD"))
	assert.True(t, res[0].IsTerminated)
	assert.Empty(t, h.env.applied[0])
	assert.Len(t, h.env.applied[1], 2)
}

func TestPumpRoundOverWhenAllDown(t *testing.T) {
	h := newHarness(t, 2)
	h.runUntilPaused()
	h.env.dead[0], h.env.dead[1] = true, true
	res := h.step(strp("FORWARD"))
	assert.Equal(t, PhaseRoundOver, h.pump.Phase())
	assert.True(t, res[0].IsTerminated)
	assert.True(t, res[1].IsTerminated)
	require.Len(t, h.episodes, 1)
	assert.Equal(t, ReasonAllDown, h.episodes[0].Reason)
	assert.Equal(t, 1, h.episodes[0].Steps)
}

func TestPumpRoundOverAnswersImmediately(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	h.env.expired = true
	h.step(strp("FORWARD"))
	require.Equal(t, PhaseRoundOver, h.pump.Phase())
	assert.Equal(t, ReasonRoundTimer, h.episodes[0].Reason)

	ticket, err := h.st.SubmitActions([]*string{strp("FORWARD")})
	require.NoError(t, err)
	h.pump.Tick(tick)
	res, err := h.st.WaitResult(context.Background(), ticket, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res[0].IsTerminated)
	assert.Len(t, h.env.applied[0], 1, "no movement after round over")
}

func TestPumpResetClearsEpisode(t *testing.T) {
	h := newHarness(t, 1)
	h.env.scoreOnShoot = 10
	h.runUntilPaused()
	h.step(strp("SHOOT"))
	h.env.dead[0] = true
	h.step(strp("FORWARD"))
	require.Equal(t, PhaseRoundOver, h.pump.Phase())

	h.st.RequestReset()
	h.st.RequestReset()
	h.pump.Tick(tick)
	assert.Equal(t, PhaseRunning, h.pump.Phase())
	assert.Equal(t, 1, h.env.resets)
	assert.Equal(t, "ep-2", h.st.Episode())
	assert.Equal(t, []bool{false}, h.st.Terminated())
	rewards, _ := h.st.Rewards(0)
	assert.Empty(t, rewards)
	assert.False(t, h.st.Paused())

	// the second request collapsed into the first
	h.runUntilPaused()
	h.pump.Tick(tick)
	assert.Equal(t, 1, h.env.resets)
	assert.Len(t, h.episodes, 1, "round-over episode is not recorded twice")
}

func TestPumpResetDeferredWhileStepInFlight(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	ticket, err := h.st.SubmitActions([]*string{strp("FORWARD")})
	require.NoError(t, err)
	h.pump.Tick(tick)
	require.Equal(t, PhaseRunning, h.pump.Phase())

	h.st.RequestReset()
	h.runUntilPaused()
	assert.Equal(t, 0, h.env.resets, "reset must wait for the step to finish")
	res, err := h.st.WaitResult(context.Background(), ticket, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, res[0].IsTerminated)

	h.pump.Tick(tick)
	assert.Equal(t, 1, h.env.resets)
	require.Len(t, h.episodes, 1)
	assert.Equal(t, ReasonReset, h.episodes[0].Reason)
	assert.Equal(t, 1, h.episodes[0].Steps)
}

func TestPumpSupersededActionNeverApplied(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	first, err := h.st.SubmitActions([]*string{strp("SHOOT")})
	require.NoError(t, err)
	second, err := h.st.SubmitActions([]*string{strp("FORWARD")})
	require.NoError(t, err)
	h.pump.Tick(tick)
	h.runUntilPaused()

	res, err := h.st.WaitResult(context.Background(), first, time.Millisecond)
	assert.ErrorIs(t, err, ErrStepSuperseded)
	assert.Equal(t, []StepResult{{}}, res)
	_, err = h.st.WaitResult(context.Background(), second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []string{"FORWARD"}, h.env.applied[0])
}

func TestPumpResetDropsActionFromPreviousEpisode(t *testing.T) {
	h := newHarness(t, 1)
	h.runUntilPaused()
	ticket, err := h.st.SubmitActions([]*string{strp("SHOOT")})
	require.NoError(t, err)
	h.st.RequestReset()
	h.pump.Tick(tick)
	require.Equal(t, 1, h.env.resets)
	assert.Equal(t, "ep-2", h.st.Episode())

	res, err := h.st.WaitResult(context.Background(), ticket, time.Millisecond)
	assert.ErrorIs(t, err, ErrStepDropped)
	assert.Equal(t, []StepResult{{}}, res)

	h.runUntilPaused()
	h.pump.Tick(tick)
	assert.Empty(t, h.env.applied[0], "action from the old episode must not run in the new one")
	assert.Empty(t, h.events)
}

func TestPumpPhaseHook(t *testing.T) {
	st, err := NewState[string](Settings{Width: 1, Height: 1, NumAgents: 1, PauseInterval: tick})
	require.NoError(t, err)
	var phases []Phase
	p := NewPump[string, string](st, newFakeEnv(1), WithLogger(logging.Discard()), WithPhaseHook(func(ph Phase) { phases = append(phases, ph) }))
	p.Tick(tick)
	assert.Equal(t, []Phase{PhasePausedForControl}, phases)
	assert.Equal(t, "paused_for_control", p.Phase().String())
}

func TestPumpConcurrentControl(t *testing.T) {
	h := newHarness(t, 1)
	h.env.scoreOnShoot = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.pump.Tick(tick)
			}
		}
	}()
	for i := 0; i < 5; i++ {
		ticket, err := h.st.SubmitActions([]*string{strp("SHOOT")})
		require.NoError(t, err)
		res, err := h.st.WaitResult(ctx, ticket, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, float32(1), res[0].Reward, "step %d", i)
	}
	cancel()
}
