package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads and validates a configuration file. A missing path returns
// the defaults rather than an error, so a bare install runs unconfigured.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints plus the cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Engine.ActiveInterval > 0 && c.Engine.IdleInterval > 0 &&
		time.Duration(c.Engine.ActiveInterval) >= time.Duration(c.Engine.IdleInterval) {
		return fmt.Errorf("invalid config: active_interval must be shorter than idle_interval")
	}
	if c.Control.Enabled && c.Control.Addr == "" {
		return fmt.Errorf("invalid config: control.addr is required when control is enabled")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("invalid config: store.path is required when the store is enabled")
	}
	return nil
}
