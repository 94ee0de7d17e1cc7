package engine

import (
	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

// overlayDepth is the sentinel rendering depth guaranteeing the overlay
// composites below every host node.
const overlayDepth = -1 << 20

// OverlayManager owns the per-container overlay node: create, position,
// resize, remove. At most one overlay exists per managed container.
type OverlayManager struct {
	hst  host.Host
	opts Options

	// intensity supplies the current material intensity in [0, 100].
	intensity func() int

	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// NewOverlayManager builds an overlay manager.
func NewOverlayManager(hst host.Host, opts Options, intensity func() int, log zerolog.Logger, metrics *telemetry.Metrics) *OverlayManager {
	return &OverlayManager{
		hst:       hst,
		opts:      opts,
		intensity: intensity,
		log:       log.With().Str("component", "overlay").Logger(),
		metrics:   metrics,
	}
}

// GetOrCreate returns the container's overlay, constructing it on first
// call once the container has a root node. It returns nil (and no error)
// when the root is not assigned yet; creation retries on a later hook.
func (m *OverlayManager) GetOrCreate(cc *containerContext, capability host.BackdropCapability) (host.Node, error) {
	if cc.overlay != nil && cc.overlay.Valid() {
		return cc.overlay, nil
	}
	if !capability.Supported {
		return nil, NewCapabilityError("backdrop primitive unsupported", nil).WithContainer(cc.id)
	}
	root := cc.container.Root()
	if root == nil {
		return nil, nil
	}

	overlay, err := m.hst.NewBackdrop(host.BackdropSpec{
		Frame:        m.overlayFrame(root),
		CornerRadius: m.opts.CornerRadius,
		Intensity:    m.intensity(),
	})
	if err != nil {
		return nil, NewMutationError("backdrop construction failed", err).WithContainer(cc.id).WithOp("new-backdrop")
	}
	if err := root.InsertChild(overlay, 0); err != nil {
		return nil, NewMutationError("overlay insertion failed", err).WithContainer(cc.id).WithOp("insert-child")
	}
	if layer, ok := overlay.Layer(); ok {
		if err := layer.SetZPosition(overlayDepth); err != nil {
			m.rejected(cc, "layer.set-zposition", err)
		}
	}
	cc.overlay = overlay
	m.metrics.RecordOverlayCreated()
	m.log.Debug().Str("container", cc.id).Str("overlay", overlay.ID()).Msg("overlay created")
	return overlay, nil
}

// EnsurePosition re-asserts that the overlay sits at child-index 0 of the
// root with the sentinel depth. It is idempotent: when the overlay is
// already bottom-most, no tree operation is performed.
func (m *OverlayManager) EnsurePosition(cc *containerContext) bool {
	overlay := cc.overlay
	if overlay == nil || !overlay.Valid() {
		return false
	}
	root := cc.container.Root()
	if root == nil || !root.Valid() {
		return false
	}

	if m.positioned(root, overlay) {
		return false
	}

	if parent := overlay.Parent(); parent != nil {
		if err := parent.RemoveChild(overlay); err != nil {
			m.rejected(cc, "remove-child", err)
			return false
		}
	}
	if err := root.InsertChild(overlay, 0); err != nil {
		m.rejected(cc, "insert-child", err)
		return false
	}
	if layer, ok := overlay.Layer(); ok && layer.ZPosition() != overlayDepth {
		if err := layer.SetZPosition(overlayDepth); err != nil {
			m.rejected(cc, "layer.set-zposition", err)
		}
	}
	m.metrics.RecordOverlayReinserted()
	return true
}

func (m *OverlayManager) positioned(root, overlay host.Node) bool {
	children := root.Children()
	if len(children) == 0 || children[0].ID() != overlay.ID() {
		return false
	}
	if layer, ok := overlay.Layer(); ok && layer.ZPosition() != overlayDepth {
		return false
	}
	return true
}

// Resize keeps the overlay frame synced to the current root bounds,
// outset to mask corner artifacts.
func (m *OverlayManager) Resize(cc *containerContext) {
	overlay := cc.overlay
	if overlay == nil || !overlay.Valid() {
		return
	}
	root := cc.container.Root()
	if root == nil || !root.Valid() {
		return
	}
	want := m.overlayFrame(root)
	if overlay.Frame() == want {
		return
	}
	if err := overlay.SetFrame(want); err != nil {
		m.rejected(cc, "set-frame", err)
	}
}

// ApplyIntensity syncs the overlay's opacity to the current intensity.
func (m *OverlayManager) ApplyIntensity(cc *containerContext) {
	overlay := cc.overlay
	if overlay == nil || !overlay.Valid() {
		return
	}
	want := float64(m.intensity()) / 100
	if overlay.Opacity() == want {
		return
	}
	if err := overlay.SetOpacity(want); err != nil {
		m.rejected(cc, "set-opacity", err)
	}
}

// Remove detaches the overlay and restores the container's original
// opaque appearance from the snapshot captured at first management.
func (m *OverlayManager) Remove(cc *containerContext) {
	if overlay := cc.overlay; overlay != nil {
		if parent := overlay.Parent(); parent != nil && parent.Valid() && overlay.Valid() {
			if err := parent.RemoveChild(overlay); err != nil {
				m.rejected(cc, "remove-child", err)
			}
		}
		cc.overlay = nil
	}
	m.restore(cc)
}

func (m *OverlayManager) restore(cc *containerContext) {
	snap := cc.snapshot
	if snap == nil || !cc.container.Live() {
		return
	}
	if err := cc.container.SetBackground(snap.background); err != nil {
		m.rejected(cc, "set-background", err)
	}
	if err := cc.container.SetOpaque(snap.opaque); err != nil {
		m.rejected(cc, "set-opaque", err)
	}
	if root := cc.container.Root(); root != nil && root.Valid() {
		if err := root.SetBackground(snap.rootPaint); err != nil {
			m.rejected(cc, "set-background", err)
		}
	}
}

// overlayFrame is the root's own bounds outset by the configured margin.
func (m *OverlayManager) overlayFrame(root host.Node) host.Rect {
	f := root.Frame()
	return host.Rect{Width: f.Width, Height: f.Height}.Outset(m.opts.OverlayOutset)
}

func (m *OverlayManager) rejected(cc *containerContext, op string, err error) {
	m.metrics.RecordMutationRejected(op)
	m.log.Debug().Str("container", cc.id).Str("op", op).Err(err).Msg("host declined mutation")
}
