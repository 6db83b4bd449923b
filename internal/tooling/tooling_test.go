// CLASSIFICATION: COMMUNITY
// Filename: tooling_test.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package tooling

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"wolfgym/internal/client"
	"wolfgym/internal/config"
	"wolfgym/internal/episodes"
	"wolfgym/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Width, cfg.Height = 32, 24
	cfg.PauseInterval = 0.01
	cfg.TickRate = 1000
	cfg.StepTimeout = 2
	cfg.EpisodeDB = filepath.Join(t.TempDir(), "episodes.db")
	cfg.Seed = 5
	return cfg
}

// runStack serves a stack on an ephemeral port and returns its base URL.
func runStack(t *testing.T, cfg config.Config) (*Stack, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stack, err := NewStack(ctx, cfg, logging.Discard())
	if err != nil {
		cancel()
		t.Fatalf("new stack: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- stack.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return stack, "http://" + lis.Addr().String()
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "wolfgym "+Version) {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestServeFlagsOverlayOnlyChanged(t *testing.T) {
	var f serveFlags
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse([]string{"--port", "9000", "--headless", "--agents", "3"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	cfg.Bind = "0.0.0.0"
	f.overlay(fs, &cfg)
	if cfg.Port != 9000 || cfg.Render || cfg.NumAgents != 3 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Bind != "0.0.0.0" {
		t.Fatalf("unset flag overrode config: %s", cfg.Bind)
	}
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"serve", "--port", "0", "--config", ""})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestNewStackRejectsBadMap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Map = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := NewStack(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected map error")
	}
}

func TestAgentPlaysAgainstStack(t *testing.T) {
	_, url := runStack(t, testConfig(t))
	var out bytes.Buffer
	opts := agentOptions{url: url, episodes: 2, maxSteps: 4, agents: 1, screenEvery: 2, seed: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runAgent(ctx, opts, &out); err != nil {
		t.Fatalf("agent: %v", err)
	}
	if !strings.Contains(out.String(), "episode 0: steps=") || !strings.Contains(out.String(), "episode 1: steps=") {
		t.Fatalf("unexpected output %q", out.String())
	}

	c := client.New(url)
	deadline := time.Now().Add(2 * time.Second)
	for {
		list, err := c.Episodes(ctx, 10)
		if err != nil {
			t.Fatalf("episodes: %v", err)
		}
		if len(list) >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected recorded episodes, got %d", len(list))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAgentVectorForm(t *testing.T) {
	cfg := testConfig(t)
	cfg.NumAgents = 2
	_, url := runStack(t, cfg)
	var out bytes.Buffer
	opts := agentOptions{url: url, episodes: 1, maxSteps: 3, agents: 2, seed: 9}
	if err := runAgent(context.Background(), opts, &out); err != nil {
		t.Fatalf("agent: %v", err)
	}
	if !strings.Contains(out.String(), "episode 0:") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestAgentRejectsBadOptions(t *testing.T) {
	if err := runAgent(context.Background(), agentOptions{}, io.Discard); err == nil {
		t.Fatalf("expected option error")
	}
}

func TestStackApplyHotKeys(t *testing.T) {
	cfg := testConfig(t)
	stack, err := NewStack(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	t.Cleanup(func() { episodes.CloseIfSupported(stack.store) })
	next := cfg
	next.PauseInterval = 0.05
	next.StepTimeout = 7
	next.LogLevel = "debug"
	next.Port = 9999
	stack.Apply(next)

	if got := stack.State.Settings().PauseInterval; got != 50*time.Millisecond {
		t.Fatalf("pause interval %s", got)
	}
	if got := stack.Bridge.StepTimeout(); got != 7*time.Second {
		t.Fatalf("step timeout %s", got)
	}
	applied := stack.Config()
	if applied.Port != cfg.Port || applied.LogLevel != "debug" {
		t.Fatalf("unexpected applied config %+v", applied)
	}
}

func TestReloadKeepsFlagsInForce(t *testing.T) {
	var f serveFlags
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse([]string{"--port", "9000", "--agents", "2", "--log-level", "debug"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := testConfig(t)
	f.overlay(fs, &cfg)
	var logs bytes.Buffer
	stack, err := NewStack(context.Background(), cfg, logging.New(&logs, logging.LevelInfo, ""))
	if err != nil {
		t.Fatalf("new stack: %v", err)
	}
	t.Cleanup(func() { episodes.CloseIfSupported(stack.store) })

	// the file on disk knows nothing about the flags
	file := testConfig(t)
	file.EpisodeDB = cfg.EpisodeDB
	file.PauseInterval = 0.05
	file.LogLevel = "warn"
	reloadWith(func(c *config.Config) { f.overlay(fs, c) }, stack.Apply)(file)

	if strings.Contains(logs.String(), "restart to apply") {
		t.Fatalf("flag-set keys reported as changed:\n%s", logs.String())
	}
	applied := stack.Config()
	if applied.LogLevel != "debug" || applied.Port != 9000 || applied.NumAgents != 2 {
		t.Fatalf("flags lost on reload: %+v", applied)
	}
	if got := stack.State.Settings().PauseInterval; got != 50*time.Millisecond {
		t.Fatalf("file change not applied: pause interval %s", got)
	}
}

func TestHeadlessStackServesBlankScreens(t *testing.T) {
	cfg := testConfig(t)
	cfg.Render = false
	stack, url := runStack(t, cfg)
	c := client.New(url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Step(ctx, "FORWARD"); err != nil {
		t.Fatalf("step: %v", err)
	}
	img, err := c.Screen(ctx, 0)
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if b := img.Bounds(); b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		t.Fatalf("unexpected bounds %v", b)
	}
	if _, _, _, a := img.At(cfg.Width/2, cfg.Height/2).RGBA(); a != 0 {
		t.Fatalf("expected blank frame in headless mode")
	}
	if stack.State.Settings().RenderToBuffer {
		t.Fatalf("headless config still renders to buffer")
	}
	if stack.State.Frames() != 0 {
		t.Fatalf("headless stack captured %d frames", stack.State.Frames())
	}
}
