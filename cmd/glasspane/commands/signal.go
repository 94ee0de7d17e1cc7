package commands

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/glasspane/glasspane/pkg/config"
	"github.com/glasspane/glasspane/pkg/control"
)

// publishSignal connects the control channel from the configuration and
// sends a single signal scoped by the --process flag.
func publishSignal(cmd *cobra.Command, name string, value int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ch := control.New(control.Options{
		Addr:    cfg.Control.Addr,
		DB:      cfg.Control.DB,
		Channel: cfg.Control.Channel,
	}, log.Logger)
	defer func() { _ = ch.Close() }()

	ctx := cmd.Context()
	if err := ch.Ping(ctx); err != nil {
		return fmt.Errorf("control channel unreachable at %s: %w", cfg.Control.Addr, err)
	}

	sig := control.Signal{Name: name, Value: value, Process: targetProcess}
	if err := ch.Publish(ctx, sig); err != nil {
		return err
	}

	log.Info().
		Str("signal", name).
		Str("process", targetProcess).
		Msg("Signal published")
	return nil
}

func newEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Enable the engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return publishSignal(cmd, control.SignalEnable, 0)
		},
	}
}

func newDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable the engine and restore original appearances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return publishSignal(cmd, control.SignalDisable, 0)
		},
	}
}

func newToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle the engine on or off",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return publishSignal(cmd, control.SignalToggle, 0)
		},
	}
}

func newIntensityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "intensity <0-100>",
		Short: "Set the overlay material intensity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[0])
			if err != nil || value < 0 || value > 100 {
				return fmt.Errorf("intensity must be an integer in [0, 100], got %q", args[0])
			}
			return publishSignal(cmd, control.SignalSetIntensity, value)
		},
	}
}

func newChromeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chrome",
		Short: "Toggle titlebar chrome clearing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return publishSignal(cmd, control.SignalToggleChrome, 0)
		},
	}
}
