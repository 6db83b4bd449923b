// CLASSIFICATION: COMMUNITY
// Filename: config.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package config loads gym server settings from a JSON file, a .env file
// and WOLFGYM_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"wolfgym/internal/arena"
	"wolfgym/internal/gym"
	"wolfgym/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. WOLFGYM_PORT.
const EnvPrefix = "WOLFGYM_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full server configuration. Durations are seconds.
type Config struct {
	Bind          string  `json:"bind"`
	Port          int     `json:"port"`
	GRPCPort      int     `json:"grpc_port"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	NumAgents     int     `json:"num_agents"`
	PauseInterval float64 `json:"pause_interval"`
	TickRate      int     `json:"tick_rate"`
	RoundDuration float64 `json:"round_duration"`
	Render        bool    `json:"render"`
	StepTimeout   float64 `json:"step_timeout"`
	ResetRate     float64 `json:"reset_rate"`
	ResetBurst    int     `json:"reset_burst"`
	AuthUser      string  `json:"auth_user"`
	AuthPass      string  `json:"auth_pass"`
	AccessLog     string  `json:"access_log"`
	LogLevel      string  `json:"log_level"`
	EpisodeDB     string  `json:"episode_db"`
	Map           string  `json:"map"`
	Seed          uint64  `json:"seed"`
}

// Default returns the settings the server runs with when nothing is configured.
func Default() Config {
	return Config{
		Bind:          "127.0.0.1",
		Port:          7878,
		Width:         256,
		Height:        256,
		NumAgents:     1,
		PauseInterval: 0.1,
		TickRate:      60,
		RoundDuration: 60,
		Render:        true,
		StepTimeout:   5,
		ResetBurst:    1,
		LogLevel:      "info",
	}
}

// Load builds a Config from defaults, the optional JSON file at path, any
// .env file found in envFiles and the process environment.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	loadDotEnv(envFiles)
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads the first readable file. godotenv never overrides
// variables already set in the environment.
func loadDotEnv(files []string) {
	if len(files) == 0 {
		files = []string{".env", "../.env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			return
		}
	}
}

type envSetter func(c *Config, v string) error

var envKeys = map[string]envSetter{
	"BIND":           func(c *Config, v string) error { c.Bind = v; return nil },
	"PORT":           intSetter(func(c *Config) *int { return &c.Port }),
	"GRPC_PORT":      intSetter(func(c *Config) *int { return &c.GRPCPort }),
	"WIDTH":          intSetter(func(c *Config) *int { return &c.Width }),
	"HEIGHT":         intSetter(func(c *Config) *int { return &c.Height }),
	"NUM_AGENTS":     intSetter(func(c *Config) *int { return &c.NumAgents }),
	"PAUSE_INTERVAL": floatSetter(func(c *Config) *float64 { return &c.PauseInterval }),
	"TICK_RATE":      intSetter(func(c *Config) *int { return &c.TickRate }),
	"ROUND_DURATION": floatSetter(func(c *Config) *float64 { return &c.RoundDuration }),
	"STEP_TIMEOUT":   floatSetter(func(c *Config) *float64 { return &c.StepTimeout }),
	"RESET_RATE":     floatSetter(func(c *Config) *float64 { return &c.ResetRate }),
	"RESET_BURST":    intSetter(func(c *Config) *int { return &c.ResetBurst }),
	"RENDER": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Render = b
		return err
	},
	"AUTH_USER":  func(c *Config, v string) error { c.AuthUser = v; return nil },
	"AUTH_PASS":  func(c *Config, v string) error { c.AuthPass = v; return nil },
	"ACCESS_LOG": func(c *Config, v string) error { c.AccessLog = v; return nil },
	"LOG_LEVEL":  func(c *Config, v string) error { c.LogLevel = v; return nil },
	"EPISODE_DB": func(c *Config, v string) error { c.EpisodeDB = v; return nil },
	"MAP":        func(c *Config, v string) error { c.Map = v; return nil },
	"SEED": func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		c.Seed = n
		return err
	},
}

func intSetter(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		*field(c) = n
		return err
	}
}

func floatSetter(field func(*Config) *float64) envSetter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		*field(c) = f
		return err
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for key, set := range envKeys {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, key, v, err)
		}
	}
	return nil
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return bad("port %d out of range", c.Port)
	case c.GRPCPort < 0 || c.GRPCPort > 65535:
		return bad("grpc_port %d out of range", c.GRPCPort)
	case c.GRPCPort != 0 && c.GRPCPort == c.Port:
		return bad("grpc_port must differ from port")
	case c.Width <= 0 || c.Height <= 0:
		return bad("frame size %dx%d", c.Width, c.Height)
	case c.NumAgents <= 0:
		return bad("num_agents must be positive")
	case c.PauseInterval <= 0:
		return bad("pause_interval must be positive")
	case c.TickRate <= 0:
		return bad("tick_rate must be positive")
	case c.RoundDuration <= 0:
		return bad("round_duration must be positive")
	case c.StepTimeout <= 0:
		return bad("step_timeout must be positive")
	case c.ResetRate < 0 || c.ResetBurst < 0:
		return bad("reset limits must not be negative")
	case c.AuthPass != "" && c.AuthUser == "":
		return bad("auth_pass set without auth_user")
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return bad("unknown log_level %q", c.LogLevel)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// PauseDuration returns pause_interval as a Duration.
func (c Config) PauseDuration() time.Duration { return seconds(c.PauseInterval) }

// StepTimeoutDuration returns step_timeout as a Duration.
func (c Config) StepTimeoutDuration() time.Duration { return seconds(c.StepTimeout) }

// RoundDurationValue returns round_duration as a Duration.
func (c Config) RoundDurationValue() time.Duration { return seconds(c.RoundDuration) }

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}

// ResetLimit returns the reset endpoint rate; zero is unlimited.
func (c Config) ResetLimit() rate.Limit { return rate.Limit(c.ResetRate) }

// GymSettings returns the shared state settings.
func (c Config) GymSettings() gym.Settings {
	return gym.Settings{
		Width:          c.Width,
		Height:         c.Height,
		NumAgents:      c.NumAgents,
		PauseInterval:  c.PauseDuration(),
		RenderToBuffer: c.Render,
	}
}

// ArenaConfig loads the configured map and returns the arena settings.
func (c Config) ArenaConfig() (arena.Config, error) {
	ac := arena.Config{
		NumAgents:     c.NumAgents,
		RoundDuration: c.RoundDurationValue(),
		Seed:          c.Seed,
	}
	if c.Map != "" {
		m, err := arena.LoadMap(c.Map)
		if err != nil {
			return ac, err
		}
		ac.Map = m
	}
	return ac, nil
}
