package host

import "fmt"

// MemoryLayer is the compositing layer of a MemoryNode.
type MemoryLayer struct {
	node       *MemoryNode
	background Paint
	opaque     bool
	zPosition  float64
}

// Background implements Layer.
func (l *MemoryLayer) Background() Paint { return l.background }

// SetBackground implements Layer.
func (l *MemoryLayer) SetBackground(p Paint) error {
	if err := l.node.mutable("layer.set-background"); err != nil {
		return err
	}
	l.background = p
	l.node.h.countMutation()
	return nil
}

// Opaque implements Layer.
func (l *MemoryLayer) Opaque() bool { return l.opaque }

// SetOpaque implements Layer.
func (l *MemoryLayer) SetOpaque(opaque bool) error {
	if err := l.node.mutable("layer.set-opaque"); err != nil {
		return err
	}
	l.opaque = opaque
	l.node.h.countMutation()
	return nil
}

// ZPosition implements Layer.
func (l *MemoryLayer) ZPosition() float64 { return l.zPosition }

// SetZPosition implements Layer.
func (l *MemoryLayer) SetZPosition(z float64) error {
	if err := l.node.mutable("layer.set-zposition"); err != nil {
		return err
	}
	l.zPosition = z
	l.node.h.countMutation()
	return nil
}

// MemoryNode is an in-memory tree node.
type MemoryNode struct {
	h          *MemoryHost
	id         string
	class      string
	parent     *MemoryNode
	children   []*MemoryNode
	frame      Rect
	background Paint
	opacity    float64
	hidden     bool
	layer      *MemoryLayer
	valid      bool

	rejectMutations bool
}

// NewNode creates a detached node. withLayer attaches a compositing layer.
func (h *MemoryHost) NewNode(class string, frame Rect, withLayer bool) *MemoryNode {
	return h.newNode(class, frame, withLayer)
}

func (h *MemoryHost) newNode(class string, frame Rect, withLayer bool) *MemoryNode {
	n := &MemoryNode{
		h:          h,
		id:         h.nextIdentity("node"),
		class:      class,
		frame:      frame,
		background: Paint{R: 255, G: 255, B: 255, A: 255},
		opacity:    1,
		valid:      true,
	}
	if withLayer {
		n.layer = &MemoryLayer{node: n, opaque: true}
	}
	return n
}

// RejectMutations makes every subsequent mutation on the node fail,
// simulating a host that declines property sets on this node type.
func (n *MemoryNode) RejectMutations(reject bool) { n.rejectMutations = reject }

func (n *MemoryNode) mutable(op string) error {
	if !n.valid {
		return fmt.Errorf("%s: node %s is no longer valid", op, n.id)
	}
	if n.rejectMutations {
		return fmt.Errorf("%s: node %s rejects mutation", op, n.id)
	}
	return nil
}

// ID implements Node.
func (n *MemoryNode) ID() string { return n.id }

// Class implements Node.
func (n *MemoryNode) Class() string { return n.class }

// Parent implements Node.
func (n *MemoryNode) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Children implements Node.
func (n *MemoryNode) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// InsertChild implements Node.
func (n *MemoryNode) InsertChild(child Node, index int) error {
	if err := n.mutable("insert-child"); err != nil {
		return err
	}
	mc, ok := child.(*MemoryNode)
	if !ok {
		return fmt.Errorf("insert-child: foreign node type %T", child)
	}
	if mc.parent != nil {
		if err := mc.parent.RemoveChild(mc); err != nil {
			return err
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(n.children) {
		index = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = mc
	mc.parent = n
	n.h.countMutation()
	return nil
}

// RemoveChild implements Node.
func (n *MemoryNode) RemoveChild(child Node) error {
	if err := n.mutable("remove-child"); err != nil {
		return err
	}
	mc, ok := child.(*MemoryNode)
	if !ok {
		return fmt.Errorf("remove-child: foreign node type %T", child)
	}
	for i, c := range n.children {
		if c == mc {
			n.children = append(n.children[:i], n.children[i+1:]...)
			mc.parent = nil
			n.h.countMutation()
			return nil
		}
	}
	return fmt.Errorf("remove-child: node %s is not a child of %s", mc.id, n.id)
}

// Frame implements Node.
func (n *MemoryNode) Frame() Rect { return n.frame }

// SetFrame implements Node.
func (n *MemoryNode) SetFrame(r Rect) error {
	if err := n.mutable("set-frame"); err != nil {
		return err
	}
	n.frame = r
	n.h.countMutation()
	return nil
}

// Background implements Node.
func (n *MemoryNode) Background() Paint { return n.background }

// SetBackground implements Node.
func (n *MemoryNode) SetBackground(p Paint) error {
	if err := n.mutable("set-background"); err != nil {
		return err
	}
	n.background = p
	n.h.countMutation()
	return nil
}

// Opacity implements Node.
func (n *MemoryNode) Opacity() float64 { return n.opacity }

// SetOpacity implements Node.
func (n *MemoryNode) SetOpacity(o float64) error {
	if err := n.mutable("set-opacity"); err != nil {
		return err
	}
	n.opacity = o
	n.h.countMutation()
	return nil
}

// Hidden implements Node.
func (n *MemoryNode) Hidden() bool { return n.hidden }

// SetHidden implements Node.
func (n *MemoryNode) SetHidden(hidden bool) error {
	if err := n.mutable("set-hidden"); err != nil {
		return err
	}
	n.hidden = hidden
	n.h.countMutation()
	return nil
}

// Layer implements Node.
func (n *MemoryNode) Layer() (Layer, bool) {
	if n.layer == nil {
		return nil, false
	}
	return n.layer, true
}

// Valid implements Node.
func (n *MemoryNode) Valid() bool { return n.valid }

func (n *MemoryNode) invalidate() {
	n.valid = false
	for _, c := range n.children {
		c.invalidate()
	}
}

// ContainerConfig describes a container to create on a MemoryHost.
type ContainerConfig struct {
	Title      string
	Kind       ContainerKind
	Level      WindowLevel
	Style      StyleFlags
	OwnerClass string
	Fullscreen bool
}

// MemoryContainer is an in-memory top-level surface.
type MemoryContainer struct {
	h          *MemoryHost
	id         string
	title      string
	kind       ContainerKind
	level      WindowLevel
	style      StyleFlags
	ownerClass string
	root       *MemoryNode
	fullscreen bool
	live       bool
	background Paint
	opaque     bool
	liveResize bool
}

// CreateContainer creates a container and emits the creation hooks. Must
// run on the UI thread.
func (h *MemoryHost) CreateContainer(cfg ContainerConfig) *MemoryContainer {
	if cfg.Kind == "" {
		cfg.Kind = KindStandard
	}
	c := &MemoryContainer{
		h:          h,
		id:         h.nextIdentity("container"),
		title:      cfg.Title,
		kind:       cfg.Kind,
		level:      cfg.Level,
		style:      cfg.Style,
		ownerClass: cfg.OwnerClass,
		fullscreen: cfg.Fullscreen,
		live:       true,
		background: Paint{R: 236, G: 236, B: 236, A: 255},
		opaque:     true,
	}
	h.containers = append(h.containers, c)
	h.emit(Event{Op: OpContainerCreated, Phase: PhaseBefore, Container: c})
	h.emit(Event{Op: OpContainerCreated, Phase: PhaseAfter, Container: c})
	return c
}

// ID implements Container.
func (c *MemoryContainer) ID() string { return c.id }

// Title implements Container.
func (c *MemoryContainer) Title() string { return c.title }

// SetTitle updates the container title without emitting hooks.
func (c *MemoryContainer) SetTitle(title string) { c.title = title }

// Kind implements Container.
func (c *MemoryContainer) Kind() ContainerKind { return c.kind }

// Level implements Container.
func (c *MemoryContainer) Level() WindowLevel { return c.level }

// Style implements Container.
func (c *MemoryContainer) Style() StyleFlags { return c.style }

// OwnerClass implements Container.
func (c *MemoryContainer) OwnerClass() string { return c.ownerClass }

// Root implements Container.
func (c *MemoryContainer) Root() Node {
	if c.root == nil {
		return nil
	}
	return c.root
}

// Fullscreen implements Container.
func (c *MemoryContainer) Fullscreen() bool { return c.fullscreen }

// Live implements Container.
func (c *MemoryContainer) Live() bool { return c.live }

// Background implements Container.
func (c *MemoryContainer) Background() Paint { return c.background }

// SetBackground implements Container.
func (c *MemoryContainer) SetBackground(p Paint) error {
	if !c.live {
		return fmt.Errorf("set-background: container %s is closed", c.id)
	}
	c.background = p
	c.h.countMutation()
	return nil
}

// Opaque implements Container.
func (c *MemoryContainer) Opaque() bool { return c.opaque }

// SetOpaque implements Container.
func (c *MemoryContainer) SetOpaque(opaque bool) error {
	if !c.live {
		return fmt.Errorf("set-opaque: container %s is closed", c.id)
	}
	c.opaque = opaque
	c.h.countMutation()
	return nil
}

// AssignRoot installs the container's root content node and emits the
// root-assignment hooks. Must run on the UI thread.
func (c *MemoryContainer) AssignRoot(root *MemoryNode) {
	c.h.emit(Event{Op: OpRootAssigned, Phase: PhaseBefore, Container: c, Node: root})
	c.root = root
	c.h.emit(Event{Op: OpRootAssigned, Phase: PhaseAfter, Container: c, Node: root})
}

// OrderFront brings the container forward and emits the hooks.
func (c *MemoryContainer) OrderFront() {
	c.h.emit(Event{Op: OpOrderFront, Phase: PhaseBefore, Container: c})
	c.h.emit(Event{Op: OpOrderFront, Phase: PhaseAfter, Container: c})
}

// SetContentSize resizes the root content node and emits frame-change
// hooks around the mutation, the way a real host fires them.
func (c *MemoryContainer) SetContentSize(r Rect) {
	c.h.emit(Event{Op: OpFrameChanged, Phase: PhaseBefore, Container: c})
	if c.root != nil {
		c.root.frame = r
		c.h.countMutation()
	}
	c.h.emit(Event{Op: OpFrameChanged, Phase: PhaseAfter, Container: c})
}

// BeginLiveResize emits the live-resize begin hook.
func (c *MemoryContainer) BeginLiveResize() {
	c.liveResize = true
	c.h.emit(Event{Op: OpLiveResizeBegin, Phase: PhaseBefore, Container: c})
	c.h.emit(Event{Op: OpLiveResizeBegin, Phase: PhaseAfter, Container: c})
}

// EndLiveResize emits the live-resize end hook.
func (c *MemoryContainer) EndLiveResize() {
	c.liveResize = false
	c.h.emit(Event{Op: OpLiveResizeEnd, Phase: PhaseBefore, Container: c})
	c.h.emit(Event{Op: OpLiveResizeEnd, Phase: PhaseAfter, Container: c})
}

// SetFullscreen toggles fullscreen and emits the mask-change hooks.
func (c *MemoryContainer) SetFullscreen(fullscreen bool) {
	if c.fullscreen == fullscreen {
		return
	}
	c.h.emit(Event{Op: OpFullscreenChanged, Phase: PhaseBefore, Container: c})
	c.fullscreen = fullscreen
	c.h.emit(Event{Op: OpFullscreenChanged, Phase: PhaseAfter, Container: c})
}

// Close closes the container. The before hook fires while the tree is
// still live so interceptors can tear down, then the tree is invalidated.
func (c *MemoryContainer) Close() {
	if !c.live {
		return
	}
	c.h.emit(Event{Op: OpClose, Phase: PhaseBefore, Container: c})
	c.live = false
	if c.root != nil {
		c.root.invalidate()
	}
	c.h.emit(Event{Op: OpClose, Phase: PhaseAfter, Container: c})
}

// Scroll emits scroll hooks for a node inside the container.
func (c *MemoryContainer) Scroll(n *MemoryNode) {
	c.h.emit(Event{Op: OpScroll, Phase: PhaseBefore, Container: c, Node: n})
	c.h.emit(Event{Op: OpScroll, Phase: PhaseAfter, Container: c, Node: n})
}

// RequestRedraw asks for a redraw of a node. It returns false when a
// before-hook suppressed the request.
func (c *MemoryContainer) RequestRedraw(n *MemoryNode) bool {
	if c.h.emit(Event{Op: OpRedraw, Phase: PhaseBefore, Container: c, Node: n}) == Suppress {
		return false
	}
	c.h.emit(Event{Op: OpRedraw, Phase: PhaseAfter, Container: c, Node: n})
	return true
}

// PerformLayout emits layout recalculation hooks for a node.
func (c *MemoryContainer) PerformLayout(n *MemoryNode) {
	c.h.emit(Event{Op: OpLayout, Phase: PhaseBefore, Container: c, Node: n})
	c.h.emit(Event{Op: OpLayout, Phase: PhaseAfter, Container: c, Node: n})
}
