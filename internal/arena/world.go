// CLASSIFICATION: COMMUNITY
// Filename: world.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package arena is the headless Wolfenstein-style round the gym drives:
// agents on a grid map that move, turn and shoot each other.
package arena

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/mlange-42/ark/ecs"
)

const (
	defaultSpeed    = 3.0
	defaultTurnRate = math.Pi / 2
	agentRadius     = 0.2
	hitRadius       = 0.35
	shotDamage      = 100
	hitScore        = 10
	startHealth     = 100
)

// Config sets up an Arena.
type Config struct {
	Map           *GameMap
	NumAgents     int
	RoundDuration time.Duration
	// Speed is the linear speed in units/s; TurnRate is in rad/s.
	Speed    float64
	TurnRate float64
	Seed     uint64
}

// Arena owns the ECS world of one round. It is not safe for concurrent use;
// the simulation goroutine is its only caller.
type Arena struct {
	cfg Config
	rng *rand.Rand

	world    *ecs.World
	actorMap *ecs.Map4[Position, Velocity, Heading, Actor]
	wallMap  *ecs.Map1[Wall]
	movers   *ecs.Filter4[Position, Velocity, Heading, Actor]

	agents  []ecs.Entity
	walls   map[Cell]ecs.Entity
	elapsed time.Duration
}

// New builds an arena and spawns the first round.
func New(cfg Config) (*Arena, error) {
	if cfg.Map == nil {
		cfg.Map = DefaultMap()
	}
	if cfg.NumAgents <= 0 {
		return nil, fmt.Errorf("num_agents must be positive, got %d", cfg.NumAgents)
	}
	if cfg.NumAgents > len(cfg.Map.EmptySpace) {
		return nil, fmt.Errorf("map has %d free cells for %d agents", len(cfg.Map.EmptySpace), cfg.NumAgents)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = defaultSpeed
	}
	if cfg.TurnRate <= 0 {
		cfg.TurnRate = defaultTurnRate
	}
	ecsWorld := ecs.NewWorld()
	world := &ecsWorld
	a := &Arena{
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		world:    world,
		actorMap: ecs.NewMap4[Position, Velocity, Heading, Actor](world),
		wallMap:  ecs.NewMap1[Wall](world),
		movers:   ecs.NewFilter4[Position, Velocity, Heading, Actor](world),
	}
	a.spawnRound()
	return a, nil
}

func (a *Arena) spawnRound() {
	a.elapsed = 0
	a.walls = make(map[Cell]ecs.Entity, len(a.cfg.Map.Walls))
	for _, c := range a.cfg.Map.Walls {
		a.walls[c] = a.wallMap.NewEntity(&Wall{Cell: c})
	}
	free := append([]Cell(nil), a.cfg.Map.EmptySpace...)
	a.rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	a.agents = make([]ecs.Entity, a.cfg.NumAgents)
	for i := range a.agents {
		c := free[i]
		a.agents[i] = a.actorMap.NewEntity(
			&Position{X: float64(c[0]) + 0.5, Y: float64(c[1]) + 0.5},
			&Velocity{},
			&Heading{Angle: a.rng.Float64() * 2 * math.Pi},
			&Actor{Index: i, Name: fmt.Sprintf("agent-%d", i), Health: startHealth},
		)
	}
}

// Reset despawns every wall and agent and spawns a fresh round.
func (a *Arena) Reset() {
	for _, e := range a.agents {
		if a.world.Alive(e) {
			a.world.RemoveEntity(e)
		}
	}
	for _, e := range a.walls {
		if a.world.Alive(e) {
			a.world.RemoveEntity(e)
		}
	}
	a.spawnRound()
}

// NumAgents returns the number of controllable agents.
func (a *Arena) NumAgents() int { return len(a.agents) }

// ParseAction parses a raw control token.
func (a *Arena) ParseAction(raw string) (Actions, error) { return ParseAction(raw) }

// Idle is the action given to agents without input.
func (a *Arena) Idle() Actions { return Idle }

func (a *Arena) actor(agent int) (*Position, *Velocity, *Heading, *Actor) {
	return a.actorMap.Get(a.agents[agent])
}

// Apply sets the agent's velocity and turn rate for the coming interval.
// Every call starts from rest, so IDLE stops the agent.
func (a *Arena) Apply(agent int, act Actions) {
	_, vel, head, actor := a.actor(agent)
	*vel = Velocity{}
	if actor.Health <= 0 {
		return
	}
	fx, fy := math.Cos(head.Angle), math.Sin(head.Angle)
	// left of forward in a counter-clockwise frame
	lx, ly := -fy, fx
	s := a.cfg.Speed
	if act.Has(Forward) {
		vel.X, vel.Y = vel.X+s*fx, vel.Y+s*fy
	}
	if act.Has(Backward) {
		vel.X, vel.Y = vel.X-s*fx, vel.Y-s*fy
	}
	if act.Has(Left) {
		vel.X, vel.Y = vel.X+s*lx, vel.Y+s*ly
	}
	if act.Has(Right) {
		vel.X, vel.Y = vel.X-s*lx, vel.Y-s*ly
	}
	if act.Has(TurnLeft) {
		vel.Angular = a.cfg.TurnRate
	}
	if act.Has(TurnRight) {
		vel.Angular = -a.cfg.TurnRate
	}
	actor.Trigger = act.Has(Shoot)
}

// Advance moves every living agent, resolves pending shots and runs the round timer.
func (a *Arena) Advance(dt time.Duration) {
	sec := dt.Seconds()
	a.resolveShots()
	query := a.movers.Query()
	for query.Next() {
		pos, vel, head, actor := query.Get()
		if actor.Health <= 0 {
			*vel = Velocity{}
			continue
		}
		head.Angle = normalizeAngle(head.Angle + vel.Angular*sec)
		nx, ny := pos.X+vel.X*sec, pos.Y+vel.Y*sec
		if a.blocked(nx, ny) {
			// stop on collision
			vel.X, vel.Y = 0, 0
			continue
		}
		pos.X, pos.Y = nx, ny
	}
	a.elapsed += dt
}

func (a *Arena) blocked(x, y float64) bool {
	for _, d := range [][2]float64{{-agentRadius, -agentRadius}, {agentRadius, -agentRadius}, {-agentRadius, agentRadius}, {agentRadius, agentRadius}} {
		if a.Solid(int(math.Floor(x+d[0])), int(math.Floor(y+d[1]))) {
			return true
		}
	}
	return false
}

// Solid reports whether a cell stops movement and rays. Cells outside the
// map are solid.
func (a *Arena) Solid(cx, cy int) bool {
	if cx < 0 || cy < 0 || cx >= a.cfg.Map.Width || cy >= a.cfg.Map.Height {
		return true
	}
	_, ok := a.walls[Cell{cx, cy}]
	return ok
}

// Bounds returns the map size in cells.
func (a *Arena) Bounds() (int, int) { return a.cfg.Map.Width, a.cfg.Map.Height }

// Score returns the agent's cumulative score this round.
func (a *Arena) Score(agent int) float32 {
	_, _, _, actor := a.actor(agent)
	return actor.Score
}

// Dead reports whether the agent's health reached zero.
func (a *Arena) Dead(agent int) bool {
	_, _, _, actor := a.actor(agent)
	return actor.Health <= 0
}

// RoundExpired reports whether the round timer has run out.
func (a *Arena) RoundExpired() bool {
	return a.cfg.RoundDuration > 0 && a.elapsed >= a.cfg.RoundDuration
}

// Place moves an agent to an exact pose.
func (a *Arena) Place(agent int, x, y, angle float64) {
	pos, vel, head, _ := a.actor(agent)
	pos.X, pos.Y = x, y
	head.Angle = normalizeAngle(angle)
	*vel = Velocity{}
}

// Camera returns the agent's eye pose for rendering.
func (a *Arena) Camera(agent int) (x, y, angle float64, alive bool) {
	pos, _, head, actor := a.actor(agent)
	return pos.X, pos.Y, head.Angle, actor.Health > 0
}

// Snapshot collects the map and every agent into a serializable value.
func (a *Arena) Snapshot() EnvironmentState {
	m := GameMap{
		Width:      a.cfg.Map.Width,
		Height:     a.cfg.Map.Height,
		EmptySpace: a.cfg.Map.EmptySpace,
		Walls:      make([]Cell, 0, len(a.walls)),
	}
	for _, c := range a.cfg.Map.Walls {
		if _, ok := a.walls[c]; ok {
			m.Walls = append(m.Walls, c)
		}
	}
	actors := make([]ActorState, len(a.agents))
	for i := range a.agents {
		pos, _, head, actor := a.actor(i)
		actors[i] = ActorState{
			Name:     actor.Name,
			Position: [2]float64{pos.X, pos.Y},
			Rotation: head.Angle,
			Health:   actor.Health,
			Score:    actor.Score,
		}
	}
	return EnvironmentState{Map: m, Actors: actors, ElapsedSeconds: a.elapsed.Seconds()}
}

func normalizeAngle(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}
	return v
}
