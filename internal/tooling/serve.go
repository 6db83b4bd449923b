// CLASSIFICATION: COMMUNITY
// Filename: serve.go v0.2
// Author: Lukas Bower
// Date Modified: 2026-10-18
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package tooling

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"wolfgym/internal/config"
	"wolfgym/internal/logging"
)

type serveFlags struct {
	configPath string
	watch      bool

	bind      string
	port      int
	grpcPort  int
	agents    int
	width     int
	height    int
	headless  bool
	logLevel  string
	episodeDB string
	mapPath   string
	seed      uint64
}

func (f *serveFlags) register(fs *pflag.FlagSet) {
	def := config.Default()
	fs.StringVarP(&f.configPath, "config", "c", "", "JSON config file")
	fs.BoolVar(&f.watch, "watch", true, "reload pause_interval, step_timeout and log_level when the config file changes")
	fs.StringVar(&f.bind, "bind", def.Bind, "bind address")
	fs.IntVar(&f.port, "port", def.Port, "HTTP listen port")
	fs.IntVar(&f.grpcPort, "grpc-port", def.GRPCPort, "gRPC health port (0 disables)")
	fs.IntVar(&f.agents, "agents", def.NumAgents, "number of agents")
	fs.IntVar(&f.width, "width", def.Width, "frame width")
	fs.IntVar(&f.height, "height", def.Height, "frame height")
	fs.BoolVar(&f.headless, "headless", !def.Render, "skip rendering; screens stay blank")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "error, warn, info or debug")
	fs.StringVar(&f.episodeDB, "episode-db", def.EpisodeDB, "sqlite file for the episode log (empty keeps it in memory)")
	fs.StringVar(&f.mapPath, "map", def.Map, "ASCII map file")
	fs.Uint64Var(&f.seed, "seed", def.Seed, "spawn seed")
}

// overlay applies the flags the user set on top of cfg.
func (f *serveFlags) overlay(fs *pflag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "bind":
			cfg.Bind = f.bind
		case "port":
			cfg.Port = f.port
		case "grpc-port":
			cfg.GRPCPort = f.grpcPort
		case "agents":
			cfg.NumAgents = f.agents
		case "width":
			cfg.Width = f.width
		case "height":
			cfg.Height = f.height
		case "headless":
			cfg.Render = !f.headless
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "episode-db":
			cfg.EpisodeDB = f.episodeDB
		case "map":
			cfg.Map = f.mapPath
		case "seed":
			cfg.Seed = f.seed
		}
	})
}

// reloadWith returns a config watch callback that passes every reloaded file
// through overlay before handing it to apply.
func reloadWith(overlay func(*config.Config), apply func(config.Config)) func(config.Config) {
	return func(next config.Config) {
		overlay(&next)
		apply(next)
	}
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gym server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			f.overlay(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logging.New(cmd.ErrOrStderr(), cfg.Level(), "[wolfgym] ")
			logging.SetDefault(log)
			var flags func(*config.Config)
			if f.watch {
				// flags stay in force over reloaded files
				flags = func(c *config.Config) { f.overlay(cmd.Flags(), c) }
			}
			return serve(cmd.Context(), cfg, f.configPath, flags, log)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

// serve runs a stack built from cfg. When overlay is set and path names a
// config file, edits to the file are overlaid and applied to the stack.
func serve(ctx context.Context, cfg config.Config, path string, overlay func(*config.Config), log *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stack, err := NewStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	if overlay != nil && path != "" {
		apply := reloadWith(overlay, stack.Apply)
		go func() {
			if err := config.Watch(ctx, path, log, apply); err != nil {
				log.Warnf("config watch stopped: %v", err)
			}
		}()
	}
	log.Infof("serving %d agent(s) at %dx%d, pause interval %s",
		cfg.NumAgents, cfg.Width, cfg.Height, cfg.PauseDuration())
	if err := stack.Run(ctx); err != nil {
		log.Errorf("gym stopped: %v", err)
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
