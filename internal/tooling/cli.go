// CLASSIFICATION: COMMUNITY
// Filename: cli.go v0.3
// Date Modified: 2026-10-17
// Author: Lukas Bower
// License: SPDX-License-Identifier: MIT OR Apache-2.0
//
// ─────────────────────────────────────────────────────────────
// wolfgym · CLI
//
// Cobra root command for the gym binary. Sub-commands:
//
//   serve    run the simulation and its HTTP/gRPC surfaces
//   agent    drive a running server with random actions
//   version  print the build version
//
// Binaries call `tooling.Execute()` from their `main()`.
// ─────────────────────────────────────────────────────────────
package tooling

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "0.1.0-dev"

// NewRootCmd returns the command tree. Tests build a fresh tree per case.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wolfgym",
		Short: "Wolfenstein-style reinforcement learning gym",
		Long: `wolfgym runs a first-person arena simulation and exposes it to
learning agents over HTTP: GET /screen.png, POST /step and POST /reset.

Run "wolfgym serve --help" for server options.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newAgentCmd(), &cobra.Command{
		Use:   "version",
		Short: "Print wolfgym version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wolfgym %s\n", Version)
		},
	})
	return root
}

// Execute runs the CLI with ctx. Typically called from main().
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
