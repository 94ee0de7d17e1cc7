package engine

import (
	"time"

	"github.com/glasspane/glasspane/pkg/host"
)

// ContainerState is the lifecycle state of a managed container.
type ContainerState string

const (
	// StateUnmanaged means the container has not passed eligibility yet.
	StateUnmanaged ContainerState = "unmanaged"

	// StateManaged means the container carries an overlay and a running
	// scheduler entry.
	StateManaged ContainerState = "managed"

	// StateSuspendedFullscreen means management is suspended for the
	// duration of a fullscreen presentation.
	StateSuspendedFullscreen ContainerState = "suspended-fullscreen"

	// StateClosed is terminal. A container identity never leaves it.
	StateClosed ContainerState = "closed"
)

// Terminal reports whether the state admits no further transitions.
func (s ContainerState) Terminal() bool {
	return s == StateClosed
}

// CanTransition reports whether the lifecycle permits moving to next.
func (s ContainerState) CanTransition(next ContainerState) bool {
	switch s {
	case StateUnmanaged:
		return next == StateManaged || next == StateClosed
	case StateManaged:
		// Unmanaged is the teardown target when the container turns
		// ineligible or the engine is disabled.
		return next == StateSuspendedFullscreen || next == StateUnmanaged || next == StateClosed
	case StateSuspendedFullscreen:
		return next == StateManaged || next == StateUnmanaged || next == StateClosed
	default:
		return false
	}
}

// appearanceSnapshot captures a container's original opaque appearance at
// first management so disable and close can restore it exactly.
type appearanceSnapshot struct {
	background host.Paint
	opaque     bool
	rootPaint  host.Paint
}

// containerContext is the per-container record owned by the engine's
// registry. It is created on the first eligible hook and destroyed on
// close; it is only ever touched on the UI thread.
type containerContext struct {
	id        string
	container host.Container
	state     ContainerState

	overlay  host.Node
	snapshot *appearanceSnapshot

	lastPass        time.Time
	lastInteraction time.Time
	liveResize      bool

	sched        *schedulerEntry
	cancelSettle func()
	settleGen    uint64
}

func (cc *containerContext) interactive(now time.Time, window time.Duration) bool {
	if cc.liveResize {
		return true
	}
	return !cc.lastInteraction.IsZero() && now.Sub(cc.lastInteraction) < window
}

// Settings are the engine's runtime switches, persisted across attaches.
type Settings struct {
	// Enabled is the master switch for the whole engine.
	Enabled bool `json:"enabled"`

	// Intensity is the overlay material intensity in [0, 100].
	Intensity int `json:"intensity"`

	// ClearChrome additionally clears titlebar filler chrome when true.
	ClearChrome bool `json:"clear_chrome"`
}

// Status is a point-in-time snapshot of the engine for inspection.
type Status struct {
	// Supported reports the result of the one-time capability probe.
	Supported bool `json:"supported"`

	// Material is the compositor material in use when supported.
	Material string `json:"material,omitempty"`

	// Settings are the current runtime switches.
	Settings Settings `json:"settings"`

	// Containers counts tracked containers by lifecycle state.
	Containers map[ContainerState]int `json:"containers"`

	// Passes is the total number of reconciliation passes executed.
	Passes uint64 `json:"passes"`

	// DroppedTicks is the number of scheduler ticks dropped by the
	// cadence debounce.
	DroppedTicks uint64 `json:"dropped_ticks"`
}
