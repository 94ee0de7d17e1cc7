package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glasspane/glasspane/pkg/engine"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "16ms" or "1s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full file configuration.
type Config struct {
	// Engine holds reconciliation tunables and target filters.
	Engine EngineConfig `yaml:"engine" validate:"required"`

	// Profiles are per-process overrides keyed by process name.
	Profiles map[string]Profile `yaml:"profiles,omitempty" validate:"dive"`

	// Telemetry configures logging, tracing, metrics, and events.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Control configures the runtime control channel.
	Control ControlConfig `yaml:"control"`

	// Store configures settings persistence.
	Store StoreConfig `yaml:"store"`
}

// EngineConfig mirrors engine.Options plus the initial settings.
type EngineConfig struct {
	Enabled     bool `yaml:"enabled"`
	Intensity   int  `yaml:"intensity" validate:"gte=0,lte=100"`
	ClearChrome bool `yaml:"clear_chrome"`

	CornerRadius  float64 `yaml:"corner_radius" validate:"gte=0"`
	OverlayOutset float64 `yaml:"overlay_outset" validate:"gte=0"`

	ActiveInterval    Duration `yaml:"active_interval"`
	IdleInterval      Duration `yaml:"idle_interval"`
	InteractiveWindow Duration `yaml:"interactive_window"`
	ShallowDepth      int      `yaml:"shallow_depth" validate:"gte=0"`
	SettleDelay       Duration `yaml:"settle_delay"`

	ProcessAllowlist []string `yaml:"process_allowlist,omitempty"`
	DenyClasses      []string `yaml:"deny_classes,omitempty"`
	DenyTitles       []string `yaml:"deny_titles,omitempty"`
	ExcludeClasses   []string `yaml:"exclude_classes,omitempty"`
	BackdropClasses  []string `yaml:"backdrop_classes,omitempty"`
	ChromeClasses    []string `yaml:"chrome_classes,omitempty"`
}

// Profile overrides a subset of settings for one process. Nil fields keep
// the global value.
type Profile struct {
	Enabled     *bool `yaml:"enabled,omitempty"`
	Intensity   *int  `yaml:"intensity,omitempty" validate:"omitempty,gte=0,lte=100"`
	ClearChrome *bool `yaml:"clear_chrome,omitempty"`
}

// TelemetryConfig is the file-level telemetry section.
type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	LogFormat   string `yaml:"log_format" validate:"omitempty,oneof=json console"`
	Environment string `yaml:"environment" validate:"omitempty,oneof=development staging production"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`
	TracingEndpoint string `yaml:"tracing_endpoint,omitempty"`
	SampleRate      float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsListen  string `yaml:"metrics_listen,omitempty"`

	EventsEnabled bool `yaml:"events_enabled"`
}

// ControlConfig configures the redis control channel.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"omitempty,hostname_port"`
	Channel string `yaml:"channel"`
	DB      int    `yaml:"db" validate:"gte=0"`
}

// StoreConfig configures the sqlite settings store.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	opts := engine.DefaultOptions()
	return &Config{
		Engine: EngineConfig{
			Enabled:           true,
			Intensity:         70,
			CornerRadius:      opts.CornerRadius,
			OverlayOutset:     opts.OverlayOutset,
			ActiveInterval:    Duration(opts.ActiveInterval),
			IdleInterval:      Duration(opts.IdleInterval),
			InteractiveWindow: Duration(opts.InteractiveWindow),
			ShallowDepth:      opts.ShallowDepth,
			SettleDelay:       Duration(opts.SettleDelay),
			DenyTitles:        opts.DenyTitles,
			ExcludeClasses:    opts.ExcludeClasses,
			BackdropClasses:   opts.BackdropClasses,
			ChromeClasses:     opts.ChromeClasses,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			LogFormat:       "console",
			Environment:     "development",
			TracingExporter: "none",
			SampleRate:      1.0,
			MetricsListen:   "127.0.0.1:9734",
			EventsEnabled:   true,
		},
		Control: ControlConfig{
			Addr:    "127.0.0.1:6379",
			Channel: "glasspane.control",
		},
		Store: StoreConfig{
			Path: "glasspane.db",
		},
	}
}

// EngineOptions maps the file section onto engine.Options.
func (c *Config) EngineOptions() engine.Options {
	ec := c.Engine
	return engine.Options{
		CornerRadius:      ec.CornerRadius,
		OverlayOutset:     ec.OverlayOutset,
		ActiveInterval:    time.Duration(ec.ActiveInterval),
		IdleInterval:      time.Duration(ec.IdleInterval),
		InteractiveWindow: time.Duration(ec.InteractiveWindow),
		ShallowDepth:      ec.ShallowDepth,
		SettleDelay:       time.Duration(ec.SettleDelay),
		ProcessAllowlist:  ec.ProcessAllowlist,
		DenyClasses:       ec.DenyClasses,
		DenyTitles:        ec.DenyTitles,
		ExcludeClasses:    ec.ExcludeClasses,
		BackdropClasses:   ec.BackdropClasses,
		ChromeClasses:     ec.ChromeClasses,
	}
}

// InitialSettings resolves the starting engine settings for a process,
// applying its profile overrides when one exists.
func (c *Config) InitialSettings(process string) engine.Settings {
	s := engine.Settings{
		Enabled:     c.Engine.Enabled,
		Intensity:   c.Engine.Intensity,
		ClearChrome: c.Engine.ClearChrome,
	}
	if p, ok := c.Profiles[process]; ok {
		if p.Enabled != nil {
			s.Enabled = *p.Enabled
		}
		if p.Intensity != nil {
			s.Intensity = *p.Intensity
		}
		if p.ClearChrome != nil {
			s.ClearChrome = *p.ClearChrome
		}
	}
	return s
}

// TelemetryConfig maps the file section onto the telemetry package's
// configuration, keeping its defaults for everything the file omits.
func (c *Config) TelemetryOptions() *telemetry.Config {
	tc := telemetry.DefaultConfig()
	fc := c.Telemetry
	if fc.LogLevel != "" {
		tc.Logging.Level = fc.LogLevel
	}
	if fc.LogFormat != "" {
		tc.Logging.Format = fc.LogFormat
	}
	if fc.Environment != "" {
		tc.Environment = fc.Environment
	}
	tc.Tracing.Enabled = fc.TracingEnabled
	if fc.TracingExporter != "" {
		tc.Tracing.Exporter = fc.TracingExporter
	}
	if fc.TracingEndpoint != "" {
		tc.Tracing.Endpoint = fc.TracingEndpoint
	}
	if fc.SampleRate > 0 {
		tc.Tracing.SamplingRate = fc.SampleRate
	}
	tc.Metrics.Enabled = fc.MetricsEnabled
	if fc.MetricsListen != "" {
		tc.Metrics.ListenAddress = fc.MetricsListen
	}
	tc.Events.Enabled = fc.EventsEnabled
	return tc
}
