package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glasspane/glasspane/pkg/config"
	"github.com/glasspane/glasspane/pkg/stores"
)

func newStatusCommand() *cobra.Command {
	var eventLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show persisted settings and recent engine events",
		Long: `Show the per-process settings and the most recent journaled events
from the settings store. Scope to one process with --process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Store.Enabled {
				return fmt.Errorf("settings store is disabled in the configuration")
			}

			ctx := cmd.Context()
			db, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Store.Path})
			if err != nil {
				return err
			}
			if err := db.Init(ctx); err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := db.Migrate(ctx); err != nil {
				return err
			}

			settings, err := db.ListSettings(ctx)
			if err != nil {
				return err
			}
			events, err := db.RecentEvents(ctx, targetProcess, eventLimit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Settings []stores.SettingsRecord `json:"settings"`
					Events   []stores.EventRecord    `json:"events"`
				}{settings, events})
			}

			if len(settings) == 0 {
				fmt.Println("No persisted settings.")
			}
			for _, s := range settings {
				fmt.Printf("%-24s enabled=%-5v intensity=%-3d clear_chrome=%v\n",
					s.Process, s.Enabled, s.Intensity, s.ClearChrome)
			}
			if len(events) > 0 {
				fmt.Println()
				for _, ev := range events {
					fmt.Printf("%s  %-22s %-12s %s\n",
						ev.CreatedAt.Format("15:04:05"), ev.Type, ev.ContainerID, ev.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&eventLimit, "events", 20, "number of recent events to show")
	return cmd
}
