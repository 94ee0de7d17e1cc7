package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/glasspane/glasspane/pkg/config"
	"github.com/glasspane/glasspane/pkg/control"
	"github.com/glasspane/glasspane/pkg/engine"
	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/stores"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	var processName string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an engine against the in-memory host",
		Long: `Run an engine attached to the in-memory reference host.

In production the engine is embedded in a platform host adapter; run
drives the same engine against the in-memory host, with the control
channel, settings store, and config reload fully wired. It is the
integration surface for exercising a deployment's configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tel, err := telemetry.NewTelemetry(cfg.TelemetryOptions())
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = tel.Shutdown(shutdownCtx)
			}()
			if cfg.Telemetry.MetricsEnabled {
				if err := tel.StartMetricsServer(); err != nil {
					return err
				}
			}

			hst := host.NewMemoryHost(host.WithProcessName(processName))

			var store engine.SettingsStore
			if cfg.Store.Enabled {
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
				store = db

				// Journal engine events for later inspection via status.
				// Per-pass events fire at cadence rate and stay out of
				// the journal.
				tel.Events.Subscribe(func(ev telemetry.Event) {
					_ = db.RecordEvent(ctx, stores.EventRecord{
						ID:          ev.ID,
						Process:     processName,
						Type:        ev.Type,
						ContainerID: ev.ContainerID,
						Message:     ev.Message,
						Level:       ev.Level,
						CreatedAt:   ev.Timestamp,
					})
				}, func(ev telemetry.Event) bool {
					return ev.Type != telemetry.EventTypePassCompleted
				})
			}

			eng := engine.New(hst, cfg.EngineOptions(), cfg.InitialSettings(processName), tel, store)
			hst.Dispatch(func() {
				if err := eng.Attach(ctx); err != nil {
					log.Error().Err(err).Msg("Engine attach failed")
				}
			})

			if cfg.Control.Enabled {
				ch := control.New(control.Options{
					Addr:    cfg.Control.Addr,
					DB:      cfg.Control.DB,
					Channel: cfg.Control.Channel,
				}, tel.Logger.Zerolog())
				defer func() { _ = ch.Close() }()

				err := ch.Subscribe(ctx, func(sig control.Signal) {
					if !sig.Matches(processName) {
						return
					}
					tel.Metrics.RecordSignal(sig.Name)
					_ = tel.Events.Publish(telemetry.Event{
						Type:    telemetry.EventTypeSignalReceived,
						Message: "control signal " + sig.Name,
						Level:   telemetry.EventLevelInfo,
					})
					hst.Dispatch(func() { applySignal(eng, sig) })
				})
				if err != nil {
					return err
				}
			}

			if configPath != "" {
				watcher := config.NewWatcher(tel.Logger.Zerolog())
				err := watcher.Watch(ctx, configPath, func(next *config.Config) {
					settings := next.InitialSettings(processName)
					hst.Dispatch(func() {
						eng.SetEnabled(settings.Enabled)
						eng.SetIntensity(settings.Intensity)
						eng.SetClearChrome(settings.ClearChrome)
					})
				})
				if err != nil {
					return err
				}
				defer func() { _ = watcher.Stop() }()
			}

			go driveClocks(ctx, hst, cfg.EngineOptions())

			log.Info().Str("process", processName).Msg("Engine running")
			hst.RunLoop(ctx.Done())
			return nil
		},
	}

	cmd.Flags().StringVar(&processName, "name", "glasspane-host", "process name the in-memory host reports")
	return cmd
}

// applySignal maps a control signal onto engine operations. It runs on
// the UI thread.
func applySignal(eng *engine.Engine, sig control.Signal) {
	switch sig.Name {
	case control.SignalEnable:
		eng.SetEnabled(true)
	case control.SignalDisable:
		eng.SetEnabled(false)
	case control.SignalToggle:
		eng.Toggle()
	case control.SignalSetIntensity:
		eng.SetIntensity(sig.Value)
	case control.SignalToggleChrome:
		eng.ToggleChrome()
	default:
		log.Warn().Str("signal", sig.Name).Msg("Unknown signal ignored")
	}
}

// driveClocks stands in for the display's vsync and the host's timer
// wheel: the in-memory host's clocks are manual, so run advances them on
// wall time.
func driveClocks(ctx context.Context, hst *host.MemoryHost, opts engine.Options) {
	frame := time.NewTicker(opts.ActiveInterval)
	defer frame.Stop()
	idle := time.NewTicker(opts.IdleInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-frame.C:
			hst.Clock().Tick(now)
		case <-idle.C:
			hst.FireTimers()
		}
	}
}
