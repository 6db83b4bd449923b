// CLASSIFICATION: COMMUNITY
// Filename: settings.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package gym

import (
	"fmt"
	"time"
)

// Settings is the fixed configuration a State is built with.
type Settings struct {
	Width          int
	Height         int
	NumAgents      int
	PauseInterval  time.Duration
	RenderToBuffer bool
}

// Validate reports the first unusable field.
func (s Settings) Validate() error {
	switch {
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	case s.NumAgents <= 0:
		return fmt.Errorf("num_agents must be positive, got %d", s.NumAgents)
	case s.PauseInterval <= 0:
		return fmt.Errorf("pause_interval must be positive, got %s", s.PauseInterval)
	}
	return nil
}
