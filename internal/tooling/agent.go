// CLASSIFICATION: COMMUNITY
// Filename: agent.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package tooling

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"wolfgym/internal/arena"
	"wolfgym/internal/client"
	"wolfgym/internal/gym"
	"wolfgym/internal/health"
)

type agentOptions struct {
	url         string
	user, pass  string
	episodes    int
	maxSteps    int
	agents      int
	screenEvery int
	healthAddr  string
	seed        uint64
}

func newAgentCmd() *cobra.Command {
	o := agentOptions{}
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Play random actions against a running gym",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&o.url, "url", "http://127.0.0.1:7878", "gym base URL")
	fs.StringVar(&o.user, "user", "", "basic auth user")
	fs.StringVar(&o.pass, "pass", "", "basic auth password")
	fs.IntVar(&o.episodes, "episodes", 1, "episodes to play")
	fs.IntVar(&o.maxSteps, "max-steps", 200, "step cap per episode")
	fs.IntVar(&o.agents, "agents", 1, "agents to drive; more than one uses the vector step form")
	fs.IntVar(&o.screenEvery, "screen-every", 1, "fetch agent 0's screen every n steps (0 disables)")
	fs.StringVar(&o.healthAddr, "health", "", "gRPC health address to probe before playing")
	fs.Uint64Var(&o.seed, "seed", uint64(time.Now().UnixNano()), "action seed")
	return cmd
}

type episodeReport struct {
	steps      int
	reward     float32
	terminated bool
	errors     int
}

func runAgent(ctx context.Context, o agentOptions, out io.Writer) error {
	if o.episodes <= 0 || o.maxSteps <= 0 || o.agents <= 0 {
		return fmt.Errorf("episodes, max-steps and agents must be positive")
	}
	if o.healthAddr != "" {
		status, err := health.Probe(ctx, o.healthAddr, 5*time.Second)
		if err != nil {
			return fmt.Errorf("health probe: %w", err)
		}
		fmt.Fprintf(out, "health: %s\n", status)
	}
	var opts []client.Option
	if o.user != "" {
		opts = append(opts, client.WithBasicAuth(o.user, o.pass))
	}
	c := client.New(o.url, opts...)
	rng := rand.New(rand.NewPCG(o.seed, o.seed>>1|1))
	vocab := arena.Vocabulary()

	for ep := 0; ep < o.episodes; ep++ {
		if err := c.Reset(ctx, true); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		rep, err := playEpisode(ctx, c, o, rng, vocab)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "episode %d: steps=%d reward=%.1f terminated=%t errors=%d\n",
			ep, rep.steps, rep.reward, rep.terminated, rep.errors)
	}
	return nil
}

func playEpisode(ctx context.Context, c *client.Client, o agentOptions, rng *rand.Rand, vocab []string) (episodeReport, error) {
	var rep episodeReport
	for rep.steps < o.maxSteps {
		results, err := step(ctx, c, o.agents, rng, vocab)
		if err != nil {
			return rep, fmt.Errorf("step %d: %w", rep.steps, err)
		}
		rep.steps++
		done := true
		for _, r := range results {
			rep.reward += r.Reward
			if !r.OK() {
				rep.errors++
			}
			done = done && r.IsTerminated
		}
		if o.screenEvery > 0 && rep.steps%o.screenEvery == 0 {
			if _, err := c.Screen(ctx, 0); err != nil {
				return rep, fmt.Errorf("screen: %w", err)
			}
		}
		if done {
			rep.terminated = true
			break
		}
	}
	return rep, nil
}

func step(ctx context.Context, c *client.Client, agents int, rng *rand.Rand, vocab []string) ([]gym.StepResult, error) {
	if agents == 1 {
		r, err := c.Step(ctx, vocab[rng.IntN(len(vocab))])
		return []gym.StepResult{r}, err
	}
	actions := make([]*string, agents)
	for i := range actions {
		tok := vocab[rng.IntN(len(vocab))]
		actions[i] = &tok
	}
	return c.StepAll(ctx, actions)
}
