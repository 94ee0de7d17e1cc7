package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	targetProcess string
	verbose       bool
	jsonOutput    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "glasspane",
		Short: "Glasspane - container transparency reconciliation engine",
		Long: `Glasspane keeps a translucent backdrop overlay pinned behind the content
of eligible top-level containers, continuously clearing the opaque fills
the host process repaints.

Features:
  - Hook-driven reconciliation with dual active/idle cadence
  - One-time capability probe, inert on unsupported hosts
  - Per-process settings persisted in SQLite
  - Runtime control over redis pub/sub
  - YAML configuration with live reload`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&targetProcess, "process", "p", "", "target process name (empty targets all)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newEnableCommand())
	rootCmd.AddCommand(newDisableCommand())
	rootCmd.AddCommand(newToggleCommand())
	rootCmd.AddCommand(newIntensityCommand())
	rootCmd.AddCommand(newChromeCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}
