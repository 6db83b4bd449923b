// CLASSIFICATION: COMMUNITY
// Filename: components.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package arena

// Position is the agent's location in map units; cell (x, y) spans [x, x+1).
type Position struct {
	X, Y float64
}

// Velocity holds linear velocity in units/s and angular velocity in rad/s.
type Velocity struct {
	X, Y    float64
	Angular float64
}

// Heading is the facing angle in radians, counter-clockwise from +X.
type Heading struct {
	Angle float64
}

// Actor identifies a controllable agent.
type Actor struct {
	Index  int
	Name   string
	Health int
	Score  float32
	// Trigger is set by a SHOOT action and resolved on the next Advance.
	Trigger bool
}

// Wall marks a solid grid cell.
type Wall struct {
	Cell Cell
}

// ActorState is the serializable view of one agent.
type ActorState struct {
	Name     string     `json:"name"`
	Position [2]float64 `json:"position"`
	Rotation float64    `json:"rotation"`
	Health   int        `json:"health"`
	Score    float32    `json:"score"`
}

// EnvironmentState is the structured observation refreshed at every decision point.
type EnvironmentState struct {
	Map            GameMap      `json:"map"`
	Actors         []ActorState `json:"actors"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
}
