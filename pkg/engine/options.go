package engine

import (
	"strings"
	"time"
)

// Options tune the engine. Zero values are replaced by the defaults from
// DefaultOptions when the engine is constructed.
type Options struct {
	// CornerRadius is the overlay corner mask radius in points.
	CornerRadius float64

	// OverlayOutset grows the overlay past the root bounds on every edge
	// to mask corner artifacts.
	OverlayOutset float64

	// ActiveInterval is the minimum interval between reconciliation
	// passes for one container. It caps the effective rate regardless of
	// how often the frame clock fires.
	ActiveInterval time.Duration

	// IdleInterval is the coarse reconciliation cadence for containers
	// without recent interaction.
	IdleInterval time.Duration

	// InteractiveWindow is the trailing window after a scroll during
	// which a container stays on the active cadence.
	InteractiveWindow time.Duration

	// ShallowDepth bounds the classifier during high-frequency passes.
	ShallowDepth int

	// SettleDelay is the wait after fullscreen exit before the overlay is
	// recreated, giving the host's exit animation time to finish.
	SettleDelay time.Duration

	// ProcessAllowlist restricts the engine to the named host processes.
	// Empty means every process is allowed.
	ProcessAllowlist []string

	// DenyClasses rejects containers whose owner class matches.
	DenyClasses []string

	// DenyTitles rejects containers whose lowercased title contains one
	// of these substrings.
	DenyTitles []string

	// ExcludeClasses are subtree roots the engine must never enter or
	// mutate: embedded foreign content renderers, modal surfaces.
	ExcludeClasses []string

	// BackdropClasses are host-supplied backdrop/filler nodes that get
	// hidden and removed rather than cleared.
	BackdropClasses []string

	// ChromeClasses are titlebar filler nodes treated as backdrops only
	// while the chrome-clearing feature is on.
	ChromeClasses []string
}

// DefaultOptions returns the tuning the engine ships with.
func DefaultOptions() Options {
	return Options{
		CornerRadius:      9,
		OverlayOutset:     2,
		ActiveInterval:    16 * time.Millisecond,
		IdleInterval:      time.Second,
		InteractiveWindow: 500 * time.Millisecond,
		ShallowDepth:      2,
		SettleDelay:       350 * time.Millisecond,
		DenyTitles:        []string{"go to folder", "connect to server"},
		ExcludeClasses:    []string{"WebContentNode", "RemoteRenderNode*", "AlertContentNode", "SheetContentNode"},
		BackdropClasses:   []string{"VisualBackdropNode", "ScrollBackdropNode*"},
		ChromeClasses:     []string{"TitlebarFillNode"},
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.CornerRadius == 0 {
		o.CornerRadius = def.CornerRadius
	}
	if o.OverlayOutset == 0 {
		o.OverlayOutset = def.OverlayOutset
	}
	if o.ActiveInterval == 0 {
		o.ActiveInterval = def.ActiveInterval
	}
	if o.IdleInterval == 0 {
		o.IdleInterval = def.IdleInterval
	}
	if o.InteractiveWindow == 0 {
		o.InteractiveWindow = def.InteractiveWindow
	}
	if o.ShallowDepth == 0 {
		o.ShallowDepth = def.ShallowDepth
	}
	if o.SettleDelay == 0 {
		o.SettleDelay = def.SettleDelay
	}
	if o.ExcludeClasses == nil {
		o.ExcludeClasses = def.ExcludeClasses
	}
	if o.BackdropClasses == nil {
		o.BackdropClasses = def.BackdropClasses
	}
	if o.ChromeClasses == nil {
		o.ChromeClasses = def.ChromeClasses
	}
	if o.DenyTitles == nil {
		o.DenyTitles = def.DenyTitles
	}
}

// matchClass matches a class name against a pattern list. A trailing '*'
// makes a pattern a prefix match; anything else is exact.
func matchClass(class string, patterns []string) bool {
	for _, p := range patterns {
		if rest, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(class, rest) {
				return true
			}
			continue
		}
		if class == p {
			return true
		}
	}
	return false
}

// matchTitle matches a lowercased title against substring patterns.
func matchTitle(title string, patterns []string) bool {
	lower := strings.ToLower(title)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
