package stores

import (
	"time"
)

// SettingsRecord is one process's persisted runtime settings.
type SettingsRecord struct {
	Process     string    `json:"process"`
	Enabled     bool      `json:"enabled"`
	Intensity   int       `json:"intensity"`
	ClearChrome bool      `json:"clear_chrome"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventRecord is one journaled engine event. The journal exists for
// post-hoc inspection: which containers were managed, when overlays were
// rebuilt, which signals arrived.
type EventRecord struct {
	ID          string    `json:"id"`
	Process     string    `json:"process"`
	Type        string    `json:"type"`
	ContainerID string    `json:"container_id,omitempty"`
	Message     string    `json:"message"`
	Level       string    `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
}
