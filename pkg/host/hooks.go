package host

// TargetKind identifies what a hook operation applies to.
type TargetKind string

const (
	// TargetContainer is a hook on a container lifecycle operation.
	TargetContainer TargetKind = "container"

	// TargetNode is a hook on a node-level mutation.
	TargetNode TargetKind = "node"
)

// Op names a host operation the engine can intercept.
type Op string

// Container-level operations.
const (
	OpContainerCreated   Op = "container.created"
	OpRootAssigned       Op = "container.root-assigned"
	OpFrameChanged       Op = "container.frame-changed"
	OpOrderFront         Op = "container.order-front"
	OpClose              Op = "container.close"
	OpLiveResizeBegin    Op = "container.live-resize-begin"
	OpLiveResizeEnd      Op = "container.live-resize-end"
	OpFullscreenChanged  Op = "container.fullscreen-changed"
)

// Node-level operations.
const (
	OpScroll Op = "node.scroll"
	OpRedraw Op = "node.redraw"
	OpLayout Op = "node.layout"
)

// Target returns the kind of object the operation applies to.
func (o Op) Target() TargetKind {
	switch o {
	case OpScroll, OpRedraw, OpLayout:
		return TargetNode
	default:
		return TargetContainer
	}
}

// Phase states whether a hook runs before or after the host's own behavior
// for the operation.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Decision is the return of a before-phase hook. After-phase hooks always
// continue.
type Decision int

const (
	// Continue lets the host proceed with its original behavior.
	Continue Decision = iota

	// Suppress asks the host to skip the operation. Only meaningful for
	// operations the host documents as suppressible (redraw requests).
	Suppress
)

// Event carries one intercepted host operation.
type Event struct {
	// Op is the intercepted operation.
	Op Op

	// Phase is before or after the host's own behavior.
	Phase Phase

	// Container is the affected container. Always set.
	Container Container

	// Node is the affected node for node-level operations, nil otherwise.
	Node Node
}

// HookSink receives intercepted operations. The host adapter invokes it
// synchronously on the UI thread: Dispatch for the before phase (honoring
// the returned Decision where applicable), then its original behavior,
// then Dispatch for the after phase.
type HookSink interface {
	Dispatch(ev Event) Decision
}
