// Package config loads, validates, and watches Glasspane's YAML
// configuration.
//
// The file carries four sections: engine tunables and target filters,
// per-process profiles, telemetry settings, and the control channel and
// settings store. A missing file yields working defaults. Validation
// combines struct tags with cross-field rules, and the Watcher reloads
// the file on change with a debounce, keeping the previous configuration
// when a reload fails to parse.
package config
