package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "milliseconds", input: "16ms", want: 16 * time.Millisecond},
		{name: "seconds", input: "1s", want: time.Second},
		{name: "compound", input: "1m30s", want: 90 * time.Second},
		{name: "bare number", input: "\"250\"", wantErr: true},
		{name: "garbage", input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.input, time.Duration(d))
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal %q: %v", tt.input, err)
			}
			if time.Duration(d) != tt.want {
				t.Errorf("got %v, want %v", time.Duration(d), tt.want)
			}
		})
	}
}

func TestDurationMarshalRoundTrip(t *testing.T) {
	d := Duration(350 * time.Millisecond)
	data, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Duration
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("round trip got %v, want %v", time.Duration(back), time.Duration(d))
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Engine.Intensity != def.Engine.Intensity {
		t.Errorf("intensity = %d, want default %d", cfg.Engine.Intensity, def.Engine.Intensity)
	}
	if cfg.Control.Channel != def.Control.Channel {
		t.Errorf("channel = %q, want default %q", cfg.Control.Channel, def.Control.Channel)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Engine.Enabled {
		t.Error("defaults should start enabled")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  enabled: true
  intensity: 45
  active_interval: 20ms
  idle_interval: 2s
profiles:
  terminal:
    intensity: 90
control:
  enabled: true
  addr: "127.0.0.1:6380"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Intensity != 45 {
		t.Errorf("intensity = %d, want 45", cfg.Engine.Intensity)
	}
	if got := time.Duration(cfg.Engine.ActiveInterval); got != 20*time.Millisecond {
		t.Errorf("active_interval = %v, want 20ms", got)
	}
	if cfg.Control.Addr != "127.0.0.1:6380" {
		t.Errorf("control addr = %q", cfg.Control.Addr)
	}
	// Sections the file omits keep their defaults.
	if cfg.Telemetry.LogLevel != "info" {
		t.Errorf("log_level = %q, want default info", cfg.Telemetry.LogLevel)
	}
	p, ok := cfg.Profiles["terminal"]
	if !ok || p.Intensity == nil || *p.Intensity != 90 {
		t.Errorf("profile terminal not parsed: %+v", p)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "engine: [not, a, mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "intensity out of range",
			mutate:  func(c *Config) { c.Engine.Intensity = 130 },
			wantErr: "invalid config",
		},
		{
			name:    "active not shorter than idle",
			mutate:  func(c *Config) { c.Engine.ActiveInterval = c.Engine.IdleInterval },
			wantErr: "active_interval",
		},
		{
			name: "control enabled without addr",
			mutate: func(c *Config) {
				c.Control.Enabled = true
				c.Control.Addr = ""
			},
			wantErr: "control.addr",
		},
		{
			name: "store enabled without path",
			mutate: func(c *Config) {
				c.Store.Enabled = true
				c.Store.Path = ""
			},
			wantErr: "store.path",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Telemetry.LogLevel = "loud" },
			wantErr: "invalid config",
		},
		{
			name:    "sample rate above one",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestInitialSettings(t *testing.T) {
	cfg := Default()
	cfg.Engine.Enabled = true
	cfg.Engine.Intensity = 70
	disabled := false
	strong := 95
	cfg.Profiles = map[string]Profile{
		"browser":  {Enabled: &disabled},
		"terminal": {Intensity: &strong},
	}

	if s := cfg.InitialSettings("editor"); !s.Enabled || s.Intensity != 70 {
		t.Errorf("no profile: %+v", s)
	}
	if s := cfg.InitialSettings("browser"); s.Enabled {
		t.Error("browser profile should disable")
	}
	if s := cfg.InitialSettings("terminal"); s.Intensity != 95 {
		t.Errorf("terminal intensity = %d, want 95", s.Intensity)
	}
	// Fields the profile leaves nil keep the global value.
	if s := cfg.InitialSettings("terminal"); !s.Enabled {
		t.Error("terminal profile should inherit enabled")
	}
}

func TestEngineOptionsMapping(t *testing.T) {
	cfg := Default()
	cfg.Engine.ShallowDepth = 3
	cfg.Engine.SettleDelay = Duration(500 * time.Millisecond)
	cfg.Engine.DenyClasses = []string{"PickerContainer"}

	opts := cfg.EngineOptions()
	if opts.ShallowDepth != 3 {
		t.Errorf("ShallowDepth = %d", opts.ShallowDepth)
	}
	if opts.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v", opts.SettleDelay)
	}
	if len(opts.DenyClasses) != 1 || opts.DenyClasses[0] != "PickerContainer" {
		t.Errorf("DenyClasses = %v", opts.DenyClasses)
	}
}

func TestTelemetryOptionsKeepsPackageDefaults(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.LogLevel = ""
	cfg.Telemetry.MetricsListen = ""

	tc := cfg.TelemetryOptions()
	if tc.Logging.Level == "" {
		t.Error("empty file level should keep the package default")
	}
	if tc.Metrics.ListenAddress == "" {
		t.Error("empty listen address should keep the package default")
	}
	if tc.Tracing.Enabled {
		t.Error("tracing should stay off when the file leaves it off")
	}
}
