package host

import "time"

// WindowLevel is the host's container rendering level. Zero is the normal
// document level; menus, tooltips and desktop layers use other values.
type WindowLevel int

// LevelNormal is the only level the engine manages.
const LevelNormal WindowLevel = 0

// ContainerKind classifies a container by its host-assigned role.
type ContainerKind string

const (
	KindStandard ContainerKind = "standard"
	KindAlert    ContainerKind = "alert"
	KindUtility  ContainerKind = "utility"
	KindHUD      ContainerKind = "hud"
	KindSheet    ContainerKind = "sheet"
)

// StyleFlags describes a container's decoration and behavior bits.
type StyleFlags uint32

const (
	// StyleTitled marks standard window decoration with a title bar.
	StyleTitled StyleFlags = 1 << iota
	StyleClosable
	StyleResizable
	// StyleBorderless marks undecorated surfaces such as pickers.
	StyleBorderless
)

// Has reports whether all bits in flag are set.
func (s StyleFlags) Has(flag StyleFlags) bool {
	return s&flag == flag
}

// Layer is the optional compositing layer attached to a node. Nodes without
// a layer must never be given one; the engine only adjusts layers that
// already exist.
type Layer interface {
	// Background returns the layer's current background paint.
	Background() Paint

	// SetBackground replaces the layer's background paint.
	SetBackground(Paint) error

	// Opaque reports whether the layer is marked opaque for compositing.
	Opaque() bool

	// SetOpaque sets the layer's opacity hint.
	SetOpaque(bool) error

	// ZPosition returns the layer's rendering depth.
	ZPosition() float64

	// SetZPosition sets the layer's rendering depth. Lower values render
	// behind higher ones.
	SetZPosition(float64) error
}

// Node is a member of the host's hierarchical UI tree. The engine never
// owns nodes; it inspects them and mutates only the properties exposed
// here, on nodes it is permitted to touch.
type Node interface {
	// ID returns a stable identifier unique within the host process.
	ID() string

	// Class returns the host-level class or role name of the node.
	Class() string

	// Parent returns the parent node, or nil at the root.
	Parent() Node

	// Children returns the node's children in z-order, index 0 bottom-most.
	Children() []Node

	// InsertChild inserts child at the given z-index.
	InsertChild(child Node, index int) error

	// RemoveChild detaches child from this node.
	RemoveChild(child Node) error

	// Frame returns the node's bounds in its parent's coordinate space.
	Frame() Rect

	// SetFrame moves and resizes the node.
	SetFrame(Rect) error

	// Background returns the node's own background paint.
	Background() Paint

	// SetBackground replaces the node's background paint.
	SetBackground(Paint) error

	// Opacity returns the node's opacity in [0, 1].
	Opacity() float64

	// SetOpacity sets the node's opacity.
	SetOpacity(float64) error

	// Hidden reports whether the node is excluded from rendering.
	Hidden() bool

	// SetHidden toggles the node's hidden flag.
	SetHidden(bool) error

	// Layer returns the node's compositing layer if it has one. The second
	// return is false for nodes without layer backing.
	Layer() (Layer, bool)

	// Valid reports whether the node is still part of a live tree.
	Valid() bool
}

// Container is a top-level composited surface owned by the host, one per
// window. Containers are enumerated and observed but never created by the
// engine.
type Container interface {
	// ID returns a stable identity for the container. Identity is never
	// reused after the container closes.
	ID() string

	// Title returns the container's current title.
	Title() string

	// Kind returns the host-assigned container kind.
	Kind() ContainerKind

	// Level returns the container's rendering level.
	Level() WindowLevel

	// Style returns the container's decoration flags.
	Style() StyleFlags

	// OwnerClass returns the class identity of the controller owning the
	// container, used for denylist matching.
	OwnerClass() string

	// Root returns the container's root content node, or nil before the
	// host assigns one.
	Root() Node

	// Fullscreen reports whether the container currently occupies the
	// full screen.
	Fullscreen() bool

	// Live reports whether the container is still open. Once false it
	// never becomes true again.
	Live() bool

	// Background returns the container-level background paint.
	Background() Paint

	// SetBackground replaces the container-level background paint.
	SetBackground(Paint) error

	// Opaque reports whether the container is composited as opaque.
	Opaque() bool

	// SetOpaque sets the container's opacity hint.
	SetOpaque(bool) error
}

// BackdropCapability is the result of the one-time startup probe for the
// host compositor's backdrop primitive. The capability is a platform
// property and cannot change at runtime, so it is probed exactly once.
type BackdropCapability struct {
	// Supported reports whether the compositor exposes the primitive.
	Supported bool

	// Material identifies the compositor material used for overlays when
	// supported, e.g. "under-window".
	Material string
}

// BackdropSpec describes the synthetic overlay node to create.
type BackdropSpec struct {
	// Frame is the initial bounds of the overlay.
	Frame Rect

	// CornerRadius is the corner mask radius in points.
	CornerRadius float64

	// Intensity is the material intensity in [0, 100].
	Intensity int
}

// FrameClock delivers ticks synchronized with the display refresh. Ticks
// may be delivered on an arbitrary goroutine; subscribers must marshal
// onto the UI thread before touching tree state.
type FrameClock interface {
	// Subscribe registers fn for frame ticks and returns a cancel func.
	// Cancel is idempotent.
	Subscribe(fn func(now time.Time)) (cancel func())
}

// Host is the complete collaborator surface the engine requires from a
// platform adapter.
type Host interface {
	// ProcessName returns the identity of the process the engine is
	// attached to.
	ProcessName() string

	// Containers enumerates the host's current top-level containers.
	Containers() []Container

	// ProbeBackdrop checks whether the platform exposes the backdrop
	// primitive. Called once at attach.
	ProbeBackdrop() BackdropCapability

	// NewBackdrop creates a synthetic backdrop node. It fails if the
	// probe reported the primitive unsupported.
	NewBackdrop(spec BackdropSpec) (Node, error)

	// Dispatch enqueues fn onto the UI thread for execution on the next
	// queue turn. Dispatch is safe to call from any goroutine and never
	// runs fn inline.
	Dispatch(fn func())

	// FrameClock returns the display's frame clock.
	FrameClock() FrameClock

	// Timer starts a coarse repeating timer firing fn every interval on
	// an arbitrary goroutine. The returned func stops it; stop is
	// idempotent.
	Timer(interval time.Duration, fn func()) (stop func())

	// SetHookSink registers the sink receiving lifecycle and mutation
	// hooks. The host invokes the sink synchronously on the UI thread
	// around its own operations. Passing nil unregisters.
	SetHookSink(sink HookSink)
}
