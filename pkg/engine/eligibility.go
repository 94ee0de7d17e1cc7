package engine

import (
	"github.com/glasspane/glasspane/pkg/host"
)

// Verdict is the outcome of an eligibility check. Reason labels the first
// failing check for metrics; an eligible verdict has an empty reason.
type Verdict struct {
	Eligible bool
	Reason   string
}

// Eligibility reasons, in the order the checks run.
const (
	ReasonDisabled      = "disabled"
	ReasonProcess       = "process"
	ReasonLevel         = "level"
	ReasonKind          = "kind"
	ReasonFullscreen    = "fullscreen"
	ReasonDeniedClass   = "denied-class"
	ReasonDeniedTitle   = "denied-title"
	ReasonUndecorated   = "undecorated"
	ReasonNoRoot        = "no-root"
)

// Filter decides whether containers and nodes are legitimate targets. It
// is pure: no check has side effects, and the checks run cheapest-first
// because the filter is evaluated on nearly every hook call.
type Filter struct {
	opts Options

	// processAllowed is memoized once at startup; process identity cannot
	// change for the lifetime of the engine.
	processAllowed bool
}

// NewFilter builds a filter for the given host process.
func NewFilter(opts Options, processName string) *Filter {
	allowed := len(opts.ProcessAllowlist) == 0
	for _, p := range opts.ProcessAllowlist {
		if p == processName {
			allowed = true
			break
		}
	}
	return &Filter{opts: opts, processAllowed: allowed}
}

// Container reports whether the container is a legitimate management
// target. It returns false fast on the first failing check.
func (f *Filter) Container(c host.Container, enabled bool) Verdict {
	if !enabled {
		return Verdict{Reason: ReasonDisabled}
	}
	if !f.processAllowed {
		return Verdict{Reason: ReasonProcess}
	}
	if c.Level() != host.LevelNormal {
		return Verdict{Reason: ReasonLevel}
	}
	switch c.Kind() {
	case host.KindAlert, host.KindUtility, host.KindHUD, host.KindSheet:
		return Verdict{Reason: ReasonKind}
	}
	if c.Fullscreen() {
		return Verdict{Reason: ReasonFullscreen}
	}
	if matchClass(c.OwnerClass(), f.opts.DenyClasses) {
		return Verdict{Reason: ReasonDeniedClass}
	}
	if matchTitle(c.Title(), f.opts.DenyTitles) {
		return Verdict{Reason: ReasonDeniedTitle}
	}
	if !c.Style().Has(host.StyleTitled) {
		return Verdict{Reason: ReasonUndecorated}
	}
	if c.Root() == nil {
		return Verdict{Reason: ReasonNoRoot}
	}
	return Verdict{Eligible: true}
}

// Node reports whether a node may be inspected and mutated. Excluded
// subtree roots are not manageable; the exclusion check itself is the
// only read the filter performs on them.
func (f *Filter) Node(n host.Node) bool {
	if n == nil || !n.Valid() {
		return false
	}
	return !matchClass(n.Class(), f.opts.ExcludeClasses)
}
