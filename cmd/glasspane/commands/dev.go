package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/glasspane/glasspane/pkg/config"
	"github.com/glasspane/glasspane/pkg/engine"
	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

func newDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Development and debugging helpers",
	}
	cmd.AddCommand(newDevSimulateCommand())
	return cmd
}

func newDevSimulateCommand() *cobra.Command {
	var (
		containers int
		passes     int
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted lifecycle against the in-memory host",
		Long: `Drive a scripted container lifecycle through the engine: create,
resize, scroll, a fullscreen round trip, and close, then print the
resulting status. Useful for eyeballing engine behavior under a given
configuration without a real host.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			telCfg := telemetry.DevelopmentConfig()
			telCfg.Metrics.Enabled = false
			tel, err := telemetry.NewTelemetry(telCfg)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = tel.Shutdown(ctx)
			}()

			hst := host.NewMemoryHost(host.WithProcessName("simulator"))
			eng := engine.New(hst, cfg.EngineOptions(), cfg.InitialSettings("simulator"), tel, nil)

			// The command goroutine is the UI thread; Flush drains the
			// dispatch queue after every step.
			if err := eng.Attach(cmd.Context()); err != nil {
				return err
			}
			hst.Flush()

			var sims []*host.MemoryContainer
			for i := 0; i < containers; i++ {
				c := hst.CreateContainer(host.ContainerConfig{
					Title: fmt.Sprintf("document %d", i+1),
					Style: host.StyleTitled | host.StyleClosable | host.StyleResizable,
				})
				root := hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
				root.InsertChild(hst.NewNode("VisualBackdropNode", host.Rect{Width: 800, Height: 600}, true), 0)
				c.AssignRoot(root)
				c.OrderFront()
				sims = append(sims, c)
			}
			hst.Flush()

			now := time.Now()
			for i := 0; i < passes; i++ {
				now = now.Add(time.Duration(cfg.Engine.IdleInterval))
				hst.Clock().Tick(now)
				hst.FireTimers()
				hst.Flush()
			}

			if len(sims) > 0 {
				c := sims[0]
				c.BeginLiveResize()
				c.SetContentSize(host.Rect{Width: 1024, Height: 768})
				c.EndLiveResize()
				hst.Flush()

				// A foreign prepend displaces the overlay from the bottom of
				// the stack; the next pass reasserts it.
				if root, ok := c.Root().(*host.MemoryNode); ok {
					stranger := hst.NewNode("InjectedBannerNode", host.Rect{Width: 1024, Height: 40}, false)
					_ = root.InsertChild(stranger, 0)
				}
				hst.FireTimers()
				hst.Flush()

				c.SetFullscreen(true)
				c.SetFullscreen(false)
				hst.Flush()
				hst.FireTimers()
				hst.Flush()
				c.Close()
				hst.Flush()
			}

			status := eng.Status()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		},
	}

	cmd.Flags().IntVar(&containers, "containers", 3, "number of simulated containers")
	cmd.Flags().IntVar(&passes, "passes", 5, "number of idle reconciliation rounds")
	return cmd
}
