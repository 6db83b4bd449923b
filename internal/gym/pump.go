// CLASSIFICATION: COMMUNITY
// Filename: pump.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package gym

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wolfgym/internal/logging"
)

// Environment is the simulation the pump drives. All methods are called from
// the simulation goroutine only.
type Environment[A, O any] interface {
	NumAgents() int
	ParseAction(raw string) (A, error)
	Idle() A
	// Apply sets the agent's velocity and heading for the coming interval.
	Apply(agent int, action A)
	// Advance runs physics and combat for dt of simulated time.
	Advance(dt time.Duration)
	Score(agent int) float32
	Dead(agent int) bool
	RoundExpired() bool
	Snapshot() O
	// Reset despawns every per-round entity and spawns a fresh round.
	Reset()
}

// Phase is the pump's position in the decision cycle.
type Phase int32

const (
	PhaseRunning Phase = iota
	PhasePausedForControl
	PhaseRoundOver
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePausedForControl:
		return "paused_for_control"
	case PhaseRoundOver:
		return "round_over"
	default:
		return "unknown"
	}
}

// Reasons an episode ends.
const (
	ReasonAllDown    = "all_agents_down"
	ReasonRoundTimer = "round_timer"
	ReasonReset      = "reset"
)

// EpisodeSummary describes a finished episode.
type EpisodeSummary struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Steps  int       `json:"steps"`
	Scores []float32 `json:"scores"`
	Reason string    `json:"reason"`
}

// PumpOption configures a Pump.
type PumpOption func(*pumpOptions)

type pumpOptions struct {
	log       *logging.Logger
	onEpisode func(EpisodeSummary)
	onStep    func(StepEvent)
	onPhase   func(Phase)
	newID     func() string
	now       func() time.Time
}

// WithLogger sets the pump logger.
func WithLogger(l *logging.Logger) PumpOption {
	return func(o *pumpOptions) { o.log = l }
}

// WithEpisodeHook is called on the simulation goroutine when an episode ends.
func WithEpisodeHook(fn func(EpisodeSummary)) PumpOption {
	return func(o *pumpOptions) { o.onEpisode = fn }
}

// WithStepHook is called after every published step result.
func WithStepHook(fn func(StepEvent)) PumpOption {
	return func(o *pumpOptions) { o.onStep = fn }
}

// WithPhaseHook is called on every phase change.
func WithPhaseHook(fn func(Phase)) PumpOption {
	return func(o *pumpOptions) { o.onPhase = fn }
}

// WithEpisodeIDs overrides the episode id generator.
func WithEpisodeIDs(fn func() string) PumpOption {
	return func(o *pumpOptions) { o.newID = fn }
}

// Pump advances the simulation tick by tick and stops it at every decision
// point until the control side supplies actions.
type Pump[A, O any] struct {
	state *State[O]
	env   Environment[A, O]
	opts  pumpOptions

	phase      atomic.Int32
	sincePause time.Duration

	inFlight     uint64
	inFlightErrs []error

	episode       EpisodeSummary
	episodeClosed bool
}

// NewPump wires env to st and starts the first episode in the running phase.
func NewPump[A, O any](st *State[O], env Environment[A, O], opts ...PumpOption) *Pump[A, O] {
	o := pumpOptions{
		log:   logging.Default(),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pump[A, O]{state: st, env: env, opts: o}
	p.beginEpisode()
	return p
}

// Phase returns the current phase; safe from any goroutine.
func (p *Pump[A, O]) Phase() Phase {
	return Phase(p.phase.Load())
}

// Episode returns the running episode id.
func (p *Pump[A, O]) Episode() string {
	return p.state.Episode()
}

func (p *Pump[A, O]) setPhase(next Phase) {
	prev := Phase(p.phase.Swap(int32(next)))
	if prev == next {
		return
	}
	p.opts.log.Debugf("pump %s -> %s", prev, next)
	if p.opts.onPhase != nil {
		p.opts.onPhase(next)
	}
}

// Tick runs one simulation frame of dt.
func (p *Pump[A, O]) Tick(dt time.Duration) {
	switch p.Phase() {
	case PhaseRunning:
		p.tickRunning(dt)
	case PhasePausedForControl:
		p.tickPaused()
	case PhaseRoundOver:
		p.tickRoundOver()
	}
}

func (p *Pump[A, O]) tickRunning(dt time.Duration) {
	p.env.Advance(dt)
	n := p.env.NumAgents()
	down := 0
	for i := 0; i < n; i++ {
		if p.env.Dead(i) {
			down++
			p.mustState(p.state.SetTerminated(i, true))
		}
	}
	switch {
	case down == n:
		p.enterRoundOver(ReasonAllDown)
		return
	case p.env.RoundExpired():
		p.enterRoundOver(ReasonRoundTimer)
		return
	}
	p.sincePause += dt
	if p.sincePause >= p.state.Settings().PauseInterval {
		p.enterPaused()
	}
}

func (p *Pump[A, O]) enterPaused() {
	p.sincePause = 0
	p.state.SetEnvState(p.env.Snapshot())
	p.publish()
	p.state.SetPaused(true)
	p.setPhase(PhasePausedForControl)
}

func (p *Pump[A, O]) enterRoundOver(reason string) {
	for i := 0; i < p.env.NumAgents(); i++ {
		p.mustState(p.state.SetTerminated(i, true))
	}
	p.state.SetEnvState(p.env.Snapshot())
	p.publish()
	p.state.SetPaused(true)
	p.setPhase(PhaseRoundOver)
	p.opts.log.Infof("episode %s over: %s after %d steps", p.episode.ID, reason, p.episode.Steps)
	p.closeEpisode(reason)
}

func (p *Pump[A, O]) tickPaused() {
	if p.state.ReceiveResetRequest() {
		p.reset()
		return
	}
	ticket, raw, ok := p.state.ReceiveActions()
	if !ok {
		return
	}
	p.apply(ticket, raw)
	p.sincePause = 0
	p.state.SetPaused(false)
	p.setPhase(PhaseRunning)
}

func (p *Pump[A, O]) tickRoundOver() {
	if p.state.ReceiveResetRequest() {
		p.reset()
		return
	}
	// Steps against a finished round are answered at once so callers observe
	// termination instead of waiting for a decision point that never comes.
	if ticket, _, ok := p.state.ReceiveActions(); ok {
		p.inFlight = ticket
		p.inFlightErrs = nil
		p.publish()
	}
}

func (p *Pump[A, O]) apply(ticket uint64, raw []*string) {
	n := p.env.NumAgents()
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		action := p.env.Idle()
		if i < len(raw) && raw[i] != nil {
			parsed, err := p.env.ParseAction(*raw[i])
			if err != nil {
				errs[i] = err
				p.opts.log.Debugf("agent %d: %v", i, err)
			} else {
				action = parsed
			}
		}
		if !p.env.Dead(i) {
			p.env.Apply(i, action)
		}
	}
	p.inFlight = ticket
	p.inFlightErrs = errs
}

// publish records the reward sample for the in-flight step and releases its
// waiter. It is a no-op when no step is in flight.
func (p *Pump[A, O]) publish() {
	if p.inFlight == 0 {
		return
	}
	for i := 0; i < p.env.NumAgents(); i++ {
		p.mustState(p.state.SetReward(i, p.env.Score(i)))
	}
	results := p.state.PublishResult(p.inFlight, p.inFlightErrs)
	p.episode.Steps++
	ev := StepEvent{Episode: p.episode.ID, Ticket: p.inFlight, Step: p.episode.Steps, Results: results}
	p.inFlight, p.inFlightErrs = 0, nil
	if p.opts.onStep != nil {
		p.opts.onStep(ev)
	}
}

func (p *Pump[A, O]) reset() {
	if !p.episodeClosed {
		p.closeEpisode(ReasonReset)
	}
	p.env.Reset()
	p.beginEpisode()
	p.opts.log.Infof("episode %s started", p.episode.ID)
}

func (p *Pump[A, O]) beginEpisode() {
	p.sincePause = 0
	p.inFlight, p.inFlightErrs = 0, nil
	p.episode = EpisodeSummary{ID: p.opts.newID(), Start: p.opts.now()}
	p.episodeClosed = false
	p.state.AcknowledgeReset(p.episode.ID)
	p.state.SetEnvState(p.env.Snapshot())
	p.setPhase(PhaseRunning)
}

func (p *Pump[A, O]) closeEpisode(reason string) {
	p.episodeClosed = true
	summary := p.episode
	summary.End = p.opts.now()
	summary.Reason = reason
	summary.Scores = make([]float32, p.env.NumAgents())
	for i := range summary.Scores {
		summary.Scores[i] = p.env.Score(i)
	}
	if p.opts.onEpisode != nil {
		p.opts.onEpisode(summary)
	}
}

// mustState panics on bookkeeping errors; they mean the environment and the
// state disagree on the agent count, which the engine treats as fatal.
func (p *Pump[A, O]) mustState(err error) {
	if err != nil {
		panic(err)
	}
}
