// Package stores provides SQLite persistence for Glasspane: per-process
// runtime settings and a journal of engine events. Migrations are
// embedded and applied at startup. The store implements
// engine.SettingsStore so toggles survive process relaunches.
package stores
