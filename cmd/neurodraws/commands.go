package main

import (
	"time"

	"github.com/spf13/cobra"
)

// runFlags are the command line overrides accepted by run.
type runFlags struct {
	configPath string
	url        string
	renderer   string
	debug      bool
}

// buildRunCmd creates the "run" command that plays the game.
func buildRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the Neuro API and serve canvas actions",
		Long: `Connect to the Neuro API and serve canvas actions.

The game will:
1. Load configuration (--config, $NEURODRAWS_CONFIG, or neurodraws.yaml)
2. Start the renderer and, if enabled, the HTTP viewer
3. Dial the Neuro API websocket and register the canvas actions
4. Apply each action it receives and report the result

Pressing Esc or q in the terminal view closes the view while the game keeps
serving actions. Ctrl-C in the view, or SIGINT/SIGTERM, unregisters the
actions and exits. Losing the Neuro connection exits with an error.`,
		Example: `  # Run with the default config against a local Neuro API
  neurodraws run

  # Write frames to a PNG instead of the terminal
  neurodraws run --renderer png

  # Debug logging against a remote endpoint
  neurodraws run --url ws://neuro.example:8000/ --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGame(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to YAML or JSON5 configuration file")
	cmd.Flags().StringVar(&flags.url, "url", "", "Neuro API websocket URL (overrides neuro.url)")
	cmd.Flags().StringVar(&flags.renderer, "renderer", "", "Render backend: auto, terminal, png, none (overrides render.backend)")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

// buildProbeCmd creates the "probe" command that checks connectivity.
func buildProbeCmd() *cobra.Command {
	var (
		configPath string
		url        string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Register the actions once and print the first reply",
		Long: `Connect to the Neuro API, send the action registration, and print the first
message received in reply. No actions are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd.OutOrStdout(), configPath, url, timeout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML or JSON5 configuration file")
	cmd.Flags().StringVar(&url, "url", "", "Neuro API websocket URL (overrides neuro.url)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for a reply")
	return cmd
}

// buildActionsCmd creates the "actions" command.
func buildActionsCmd() *cobra.Command {
	var game string
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Print the action registration message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printActions(cmd.OutOrStdout(), game)
		},
	}
	cmd.Flags().StringVar(&game, "game", "NeuroDraws", "Game name to include in the message")
	return cmd
}

// buildConfigCmd creates the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfigSchema(cmd.OutOrStdout())
		},
	}

	var configPath string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printConfig(cmd.OutOrStdout(), configPath)
		},
	}
	showCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML or JSON5 configuration file")

	cmd.AddCommand(schemaCmd, showCmd)
	return cmd
}
