// CLASSIFICATION: COMMUNITY
// Filename: actions.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package arena

import (
	"errors"
	"fmt"
	"strings"
)

// Actions is a bit set of the moves an agent performs over one interval.
type Actions uint32

const (
	Idle Actions = 1 << iota
	Forward
	Backward
	Left
	Right
	TurnLeft
	TurnRight
	Shoot
)

var (
	// ErrUnknownAction is returned for a token outside the action vocabulary.
	ErrUnknownAction = errors.New("unknown action")
	// ErrConflictingActions is returned when opposing moves are combined.
	ErrConflictingActions = errors.New("conflicting actions")
)

var actionNames = []struct {
	flag Actions
	name string
}{
	{Idle, "IDLE"},
	{Forward, "FORWARD"},
	{Backward, "BACKWARD"},
	{Left, "LEFT"},
	{Right, "RIGHT"},
	{TurnLeft, "TURN_LEFT"},
	{TurnRight, "TURN_RIGHT"},
	{Shoot, "SHOOT"},
}

var opposing = [][2]Actions{{Forward, Backward}, {Left, Right}, {TurnLeft, TurnRight}}

// ParseAction reads a token such as "FORWARD" or a "|"-joined combination
// such as "FORWARD|SHOOT". The empty string is Idle.
func ParseAction(raw string) (Actions, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Idle, nil
	}
	var a Actions
	for _, tok := range strings.Split(raw, "|") {
		flag, ok := lookupAction(strings.TrimSpace(tok))
		if !ok {
			return 0, fmt.Errorf("%w %q", ErrUnknownAction, tok)
		}
		a |= flag
	}
	if a.Has(Idle) && a != Idle {
		return 0, fmt.Errorf("%w: IDLE combined with %s", ErrConflictingActions, a&^Idle)
	}
	for _, pair := range opposing {
		if a.Has(pair[0]) && a.Has(pair[1]) {
			return 0, fmt.Errorf("%w: %s", ErrConflictingActions, pair[0]|pair[1])
		}
	}
	return a, nil
}

func lookupAction(tok string) (Actions, bool) {
	for _, n := range actionNames {
		if n.name == tok {
			return n.flag, true
		}
	}
	return 0, false
}

// Has reports whether every bit of f is set.
func (a Actions) Has(f Actions) bool { return f != 0 && a&f == f }

func (a Actions) String() string {
	if a == 0 {
		return "NONE"
	}
	var parts []string
	for _, n := range actionNames {
		if a.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Vocabulary lists every single-action token in flag order.
func Vocabulary() []string {
	out := make([]string, len(actionNames))
	for i, n := range actionNames {
		out[i] = n.name
	}
	return out
}
