// Package main provides the CLI entry point for NeuroDraws, a canvas game
// driven by the Neuro API.
//
// # Basic Usage
//
// Connect to the Neuro API and start drawing:
//
//	neurodraws run --url ws://localhost:8000/
//
// Check that the Neuro API accepts the action registration:
//
//	neurodraws probe
//
// # Environment Variables
//
//   - NEURODRAWS_CONFIG: Path to configuration file (default: neurodraws.yaml)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/neurodraws
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neurodraws",
		Short: "NeuroDraws - a shared canvas controlled by the Neuro API",
		Long: `NeuroDraws registers drawing actions with the Neuro API over a websocket,
applies the actions it receives to a canvas of squares, and renders the canvas
to the terminal, a PNG file, or an HTTP viewer.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildProbeCmd(),
		buildActionsCmd(),
		buildConfigCmd(),
	)
	return rootCmd
}
