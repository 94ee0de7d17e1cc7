package engine

import (
	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

// Mode selects how deep a classifier pass walks.
type Mode string

const (
	// ModeFull walks the whole reachable tree.
	ModeFull Mode = "full"

	// ModeShallow bounds the walk to the configured depth limit, trading
	// completeness for latency during high-frequency passes.
	ModeShallow Mode = "shallow"
)

// ClassifyStats summarizes one classifier pass.
type ClassifyStats struct {
	// Visited is the number of nodes inspected.
	Visited int

	// Excluded is the number of subtree roots skipped by exclusion policy.
	Excluded int

	// Backdrops is the number of backdrop/filler nodes hidden.
	Backdrops int

	// Cleared is the number of nodes whose background was made transparent.
	Cleared int

	// Rejected is the number of mutations the host declined.
	Rejected int
}

// Classifier walks a container's tree, excluding foreign branches and
// making the remaining nodes transparent.
type Classifier struct {
	opts Options

	// chromeOn reports whether titlebar chrome fillers are currently
	// treated as backdrops.
	chromeOn func() bool

	// dispatch defers work to the next UI-thread turn. Node removals are
	// never performed synchronously mid-walk; the host may be mid-layout
	// on the tree.
	dispatch func(func())

	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// NewClassifier builds a classifier over the given tuning.
func NewClassifier(opts Options, chromeOn func() bool, dispatch func(func()), log zerolog.Logger, metrics *telemetry.Metrics) *Classifier {
	return &Classifier{
		opts:     opts,
		chromeOn: chromeOn,
		dispatch: dispatch,
		log:      log.With().Str("component", "classifier").Logger(),
		metrics:  metrics,
	}
}

// Classify walks the tree under root. skipID names the engine's own
// overlay node, which the walk leaves alone. Failures mutating one node
// are captured and do not abort sibling subtree visits.
func (c *Classifier) Classify(root host.Node, mode Mode, skipID string) ClassifyStats {
	var stats ClassifyStats
	limit := 0
	if mode == ModeShallow {
		limit = c.opts.ShallowDepth
	}
	c.visit(root, 0, limit, skipID, &stats)
	c.metrics.RecordNodesVisited(stats.Visited)
	c.metrics.RecordBackdropsHidden(stats.Backdrops)
	return stats
}

func (c *Classifier) visit(n host.Node, depth, limit int, skipID string, stats *ClassifyStats) {
	if n == nil || !n.Valid() || n.ID() == skipID {
		return
	}
	stats.Visited++

	// Exclusion is checked before any other read or write on the node.
	if matchClass(n.Class(), c.opts.ExcludeClasses) {
		stats.Excluded++
		return
	}

	if c.isBackdrop(n.Class()) {
		c.hideBackdrop(n, stats)
		return
	}

	c.clearNode(n, stats)

	if limit > 0 && depth+1 >= limit {
		return
	}
	for _, child := range n.Children() {
		c.visit(child, depth+1, limit, skipID, stats)
	}
}

func (c *Classifier) isBackdrop(class string) bool {
	if matchClass(class, c.opts.BackdropClasses) {
		return true
	}
	return c.chromeOn() && matchClass(class, c.opts.ChromeClasses)
}

// hideBackdrop zeroes the node out immediately and schedules its removal
// on the next UI-thread turn.
func (c *Classifier) hideBackdrop(n host.Node, stats *ClassifyStats) {
	stats.Backdrops++
	if n.Opacity() != 0 {
		if err := n.SetOpacity(0); err != nil {
			c.reject(n, "set-opacity", err, stats)
		}
	}
	if !n.Hidden() {
		if err := n.SetHidden(true); err != nil {
			c.reject(n, "set-hidden", err, stats)
		}
	}
	parent := n.Parent()
	if parent == nil {
		return
	}
	c.dispatch(func() {
		if !n.Valid() || !parent.Valid() {
			return
		}
		if err := parent.RemoveChild(n); err != nil {
			c.log.Debug().Str("node", n.ID()).Err(err).Msg("deferred backdrop removal declined")
		}
	})
}

// clearNode makes the node's own paint transparent. If the node already
// carries a compositing layer its background is cleared and it is marked
// non-opaque. The classifier never requests layer-backing on a node that
// lacks one; forcing it inverts the node's coordinate convention.
func (c *Classifier) clearNode(n host.Node, stats *ClassifyStats) {
	cleared := false
	if !n.Background().Transparent() {
		if err := n.SetBackground(host.Clear); err != nil {
			c.reject(n, "set-background", err, stats)
		} else {
			cleared = true
		}
	}
	if layer, ok := n.Layer(); ok {
		if !layer.Background().Transparent() {
			if err := layer.SetBackground(host.Clear); err != nil {
				c.reject(n, "layer.set-background", err, stats)
			} else {
				cleared = true
			}
		}
		if layer.Opaque() {
			if err := layer.SetOpaque(false); err != nil {
				c.reject(n, "layer.set-opaque", err, stats)
			}
		}
	}
	if cleared {
		stats.Cleared++
	}
}

func (c *Classifier) reject(n host.Node, op string, err error, stats *ClassifyStats) {
	stats.Rejected++
	c.metrics.RecordMutationRejected(op)
	c.log.Debug().Str("node", n.ID()).Str("op", op).Err(err).Msg("host declined mutation")
}
