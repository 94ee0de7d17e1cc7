package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

// SettingsStore persists runtime settings across process launches. The
// engine loads once at attach and writes through on every change; a nil
// store keeps settings in memory only.
type SettingsStore interface {
	// LoadSettings returns the persisted settings for a process identity.
	// The second result is false when nothing has been stored yet.
	LoadSettings(ctx context.Context, process string) (Settings, bool, error)

	// SaveSettings writes the settings for a process identity.
	SaveSettings(ctx context.Context, process string, s Settings) error
}

// Engine owns the reconciliation loop for one host process. Every field
// below the construction-time collaborators is confined to the UI thread:
// hooks, marshaled ticks, and control mutations all arrive there, so the
// engine holds no locks.
type Engine struct {
	hst   host.Host
	opts  Options
	store SettingsStore

	filter     *Filter
	classifier *Classifier
	overlays   *OverlayManager
	scheduler  *Scheduler
	registry   *Registry

	probe      capabilityProbe
	capability host.BackdropCapability

	// UI-thread state.
	settings     Settings
	contexts     map[string]*containerContext
	passes       uint64
	droppedTicks uint64
	attached     bool

	log     zerolog.Logger
	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
}

// New builds an engine against a host. initial seeds the settings until
// the store overrides them at attach. tel must be non-nil; store may be
// nil for memory-only settings.
func New(hst host.Host, opts Options, initial Settings, tel *telemetry.Telemetry, store SettingsStore) *Engine {
	opts.applyDefaults()

	log := tel.Logger.NewComponentLogger("engine").Zerolog()
	e := &Engine{
		hst:      hst,
		opts:     opts,
		store:    store,
		settings: initial.clamped(),
		contexts: make(map[string]*containerContext),
		log:      log,
		tracer:   tel.Tracer,
		metrics:  tel.Metrics,
		events:   tel.Events,
	}

	e.filter = NewFilter(opts, hst.ProcessName())
	e.classifier = NewClassifier(opts, func() bool { return e.settings.ClearChrome }, hst.Dispatch, log, tel.Metrics)
	e.overlays = NewOverlayManager(hst, opts, func() int { return e.settings.Intensity }, log, tel.Metrics)
	e.scheduler = NewScheduler(hst, opts, e.schedulerTick, log)
	e.registry = NewRegistry(log)
	return e
}

// Attach probes the host, loads persisted settings, registers hooks, and
// sweeps containers that already exist. It must run on the UI thread. An
// unsupported host disables the engine permanently; Attach still returns
// nil so the process keeps running untouched.
func (e *Engine) Attach(ctx context.Context) error {
	if e.attached {
		return nil
	}
	_, span := e.tracer.StartAttachSpan(ctx, e.hst.ProcessName())
	defer span.End()

	e.capability = e.probe.Result(e.hst)
	if !e.capability.Supported {
		e.log.Warn().Msg("backdrop primitive unsupported, engine inert")
		e.publish(telemetry.EventTypeCapabilityMissing, "", "backdrop primitive unsupported")
		telemetry.RecordError(span, NewCapabilityError("backdrop primitive unsupported", nil))
		e.attached = true
		return nil
	}

	if e.store != nil {
		if s, ok, err := e.store.LoadSettings(ctx, e.hst.ProcessName()); err != nil {
			e.log.Warn().Err(err).Msg("settings load failed, using defaults")
		} else if ok {
			e.settings = s.clamped()
		}
	}

	e.registerHooks()
	e.hst.SetHookSink(e.registry)
	e.attached = true
	e.Sweep()

	telemetry.RecordSuccess(span)
	e.log.Info().
		Str("material", e.capability.Material).
		Bool("enabled", e.settings.Enabled).
		Int("intensity", e.settings.Intensity).
		Msg("engine attached")
	return nil
}

// Sweep enumerates the host's current containers and considers each for
// management. Attach and enable both use it to pick up containers that
// existed before hooks were live.
func (e *Engine) Sweep() {
	for _, c := range e.hst.Containers() {
		e.consider(c)
	}
}

func (e *Engine) registerHooks() {
	r := e.registry
	r.Register(host.OpContainerCreated, host.PhaseAfter, e.hookConsider)
	r.Register(host.OpRootAssigned, host.PhaseAfter, e.hookConsider)
	r.Register(host.OpOrderFront, host.PhaseAfter, e.hookConsider)
	r.Register(host.OpFrameChanged, host.PhaseBefore, e.hookPreResize)
	r.Register(host.OpFrameChanged, host.PhaseAfter, e.hookPostResize)
	r.Register(host.OpLiveResizeBegin, host.PhaseAfter, e.hookLiveResizeBegin)
	r.Register(host.OpLiveResizeEnd, host.PhaseAfter, e.hookLiveResizeEnd)
	r.Register(host.OpFullscreenChanged, host.PhaseAfter, e.hookFullscreen)
	r.Register(host.OpClose, host.PhaseBefore, e.hookClose)
	r.Register(host.OpScroll, host.PhaseAfter, e.hookScroll)
	r.Register(host.OpRedraw, host.PhaseBefore, e.hookRedraw)
	r.Register(host.OpLayout, host.PhaseAfter, e.hookLayout)
}

// consider routes a container through eligibility and, when it passes,
// creates or advances its context. A managed container that turned
// ineligible is torn down here.
func (e *Engine) consider(c host.Container) {
	if c == nil {
		return
	}
	cc := e.contexts[c.ID()]

	verdict := e.filter.Container(c, e.settings.Enabled && e.capability.Supported)
	if !verdict.Eligible {
		e.metrics.RecordIneligible(verdict.Reason)
		if cc == nil {
			return
		}
		switch {
		case cc.state == StateManaged && verdict.Reason == ReasonFullscreen:
			e.suspend(cc)
		case cc.state == StateManaged:
			e.unmanage(cc)
		case cc.state == StateSuspendedFullscreen && verdict.Reason != ReasonFullscreen:
			// Suspension only covers fullscreen; any other reason tears
			// the context down to unmanaged.
			e.unmanage(cc)
		}
		return
	}

	if cc == nil {
		cc = &containerContext{id: c.ID(), container: c, state: StateUnmanaged}
		e.contexts[cc.id] = cc
	}
	switch cc.state {
	case StateUnmanaged:
		e.manage(cc)
	case StateManaged:
		e.overlays.EnsurePosition(cc)
	case StateSuspendedFullscreen:
		// A pending settle timer owns the resume. Without one the
		// container was stranded by a settle re-check that failed, and
		// this hook is the retry.
		if cc.cancelSettle == nil {
			e.manage(cc)
		}
	}
}

func (e *Engine) lookup(ev host.Event) *containerContext {
	if ev.Container == nil {
		return nil
	}
	return e.contexts[ev.Container.ID()]
}

func (e *Engine) hookConsider(ev host.Event) host.Decision {
	e.consider(ev.Container)
	return host.Continue
}

// hookPreResize re-asserts transparency before the host applies a new
// frame, so the resized region never flashes the original opaque fill.
func (e *Engine) hookPreResize(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil && cc.state == StateManaged {
		e.applyTransparency(cc)
	}
	return host.Continue
}

func (e *Engine) hookPostResize(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil && cc.state == StateManaged {
		e.overlays.Resize(cc)
		e.overlays.EnsurePosition(cc)
	}
	return host.Continue
}

func (e *Engine) hookLiveResizeBegin(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil && cc.state == StateManaged {
		cc.liveResize = true
		cc.lastInteraction = time.Now()
	}
	return host.Continue
}

// hookLiveResizeEnd runs one full pass to heal whatever the resize storm
// disturbed, then hands cadence selection back to the interaction window.
func (e *Engine) hookLiveResizeEnd(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil && cc.state == StateManaged {
		cc.liveResize = false
		cc.lastInteraction = time.Now()
		e.reconcile(cc, ModeFull, TickFrame, time.Now())
	}
	return host.Continue
}

func (e *Engine) hookFullscreen(ev host.Event) host.Decision {
	cc := e.lookup(ev)
	if cc == nil {
		// A container born fullscreen has no context yet; exiting
		// fullscreen is its first eligible moment.
		if ev.Container != nil && !ev.Container.Fullscreen() {
			e.consider(ev.Container)
		}
		return host.Continue
	}
	if ev.Container.Fullscreen() {
		if cc.state == StateManaged {
			e.suspend(cc)
		} else {
			// Re-entry during the settle window cancels the pending
			// resume.
			cc.stopSettle()
		}
		return host.Continue
	}
	if cc.state == StateSuspendedFullscreen {
		e.scheduleResume(cc)
	}
	return host.Continue
}

// hookClose runs in the before phase, while the tree is still alive, so
// the overlay can be detached cleanly.
func (e *Engine) hookClose(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil {
		e.closeContainer(cc)
	}
	return host.Continue
}

// hookScroll marks the interaction and heals the scrolled region's own
// shallow child structure, where the host materializes fills on demand.
func (e *Engine) hookScroll(ev host.Event) host.Decision {
	cc := e.lookup(ev)
	if cc == nil || cc.state != StateManaged {
		return host.Continue
	}
	cc.lastInteraction = time.Now()
	if ev.Node != nil && ev.Node.Valid() {
		skip := ""
		if cc.overlay != nil {
			skip = cc.overlay.ID()
		}
		e.classifier.Classify(ev.Node, ModeShallow, skip)
	}
	return host.Continue
}

// hookRedraw suppresses redraw requests targeting the overlay or nodes
// inside excluded subtrees of a managed container, so the engine never
// fights the host's own draw cycle there.
func (e *Engine) hookRedraw(ev host.Event) host.Decision {
	cc := e.lookup(ev)
	if cc == nil || cc.state != StateManaged || ev.Node == nil {
		return host.Continue
	}
	if cc.overlay != nil && ev.Node.ID() == cc.overlay.ID() {
		return host.Suppress
	}
	if e.inExcludedSubtree(ev.Node) {
		return host.Suppress
	}
	return host.Continue
}

func (e *Engine) hookLayout(ev host.Event) host.Decision {
	if cc := e.lookup(ev); cc != nil && cc.state == StateManaged {
		e.overlays.EnsurePosition(cc)
	}
	return host.Continue
}

// inExcludedSubtree climbs from n to the root looking for an excluded
// ancestor. Class is the only property read on the way up.
func (e *Engine) inExcludedSubtree(n host.Node) bool {
	for cur := n; cur != nil && cur.Valid(); cur = cur.Parent() {
		if matchClass(cur.Class(), e.opts.ExcludeClasses) {
			return true
		}
	}
	return false
}

// schedulerTick is the marshaled clock callback. It holds a container ID,
// never a container reference, so a tick that raced a close finds no
// context and drops. It re-validates liveness and eligibility before
// doing any work, and the per-container last-pass timestamp debounces
// regardless of how often the underlying clock fires.
func (e *Engine) schedulerTick(id string, now time.Time, src TickSource) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("container", id).Interface("panic", r).Msg("reconciliation panic contained")
		}
	}()

	cc, ok := e.contexts[id]
	if !ok || cc.state != StateManaged {
		return
	}
	if !cc.container.Live() {
		e.closeContainer(cc)
		return
	}
	verdict := e.filter.Container(cc.container, e.settings.Enabled && e.capability.Supported)
	if !verdict.Eligible {
		if verdict.Reason == ReasonFullscreen {
			e.suspend(cc)
		} else {
			e.unmanage(cc)
		}
		return
	}

	interactive := cc.interactive(now, e.opts.InteractiveWindow)
	if src == TickFrame && !interactive {
		return
	}
	if src == TickIdle && interactive {
		return
	}
	if now.Sub(cc.lastPass) < e.opts.ActiveInterval {
		e.droppedTicks++
		e.metrics.RecordDroppedTick()
		return
	}

	mode := ModeFull
	if interactive {
		mode = ModeShallow
	}
	e.reconcile(cc, mode, src, now)
}

// reconcile is one pass: re-assert container transparency, classify the
// tree, and re-assert the overlay invariants. Every mutation inside is
// individually fallible; the pass always runs to the end.
func (e *Engine) reconcile(cc *containerContext, mode Mode, src TickSource, now time.Time) {
	start := time.Now()
	_, span := e.tracer.StartPassSpan(context.Background(), cc.id, string(mode), string(src))
	defer span.End()

	e.applyTransparency(cc)

	if root := cc.container.Root(); root != nil && root.Valid() {
		skip := ""
		if cc.overlay != nil {
			skip = cc.overlay.ID()
		}
		e.classifier.Classify(root, mode, skip)
	}
	e.overlays.EnsurePosition(cc)
	e.overlays.Resize(cc)
	e.overlays.ApplyIntensity(cc)
	e.verifyOverlay(cc)

	cc.lastPass = now
	e.passes++
	e.metrics.RecordPass(string(mode), string(src), time.Since(start))
	e.publish(telemetry.EventTypePassCompleted, cc.id, fmt.Sprintf("%s pass via %s tick", mode, src))
	telemetry.RecordSuccess(span)
}

// applyTransparency makes the container itself see-through so the overlay
// at the bottom of the tree shows.
func (e *Engine) applyTransparency(cc *containerContext) {
	c := cc.container
	if c.Opaque() {
		if err := c.SetOpaque(false); err != nil {
			e.rejected(cc, "set-opaque", err)
		}
	}
	if !c.Background().Transparent() {
		if err := c.SetBackground(host.Clear); err != nil {
			e.rejected(cc, "set-background", err)
		}
	}
	if root := c.Root(); root != nil && root.Valid() && !root.Background().Transparent() {
		if err := root.SetBackground(host.Clear); err != nil {
			e.rejected(cc, "set-background", err)
		}
	}
}

// verifyOverlay checks the structural invariants at the end of every
// pass and logs a classified internal error when one does not hold. The
// next pass repairs it; verification never mutates.
func (e *Engine) verifyOverlay(cc *containerContext) {
	overlay := cc.overlay
	if overlay == nil || !overlay.Valid() {
		return
	}
	root := cc.container.Root()
	if root == nil || !root.Valid() {
		return
	}
	children := root.Children()
	if len(children) == 0 || children[0].ID() != overlay.ID() {
		err := NewInternalError("overlay not bottom-most after pass", nil).WithContainer(cc.id).WithNode(overlay.ID())
		e.log.Error().Err(err).Msg("invariant violation")
	}
	if layer, ok := overlay.Layer(); ok && layer.ZPosition() != overlayDepth {
		err := NewInternalError(fmt.Sprintf("overlay depth %g, want %g", layer.ZPosition(), float64(overlayDepth)), nil).WithContainer(cc.id).WithNode(overlay.ID())
		e.log.Error().Err(err).Msg("invariant violation")
	}
}

// SetEnabled flips the master switch. Enabling sweeps existing containers;
// disabling tears every context down and restores original appearances.
// Must run on the UI thread.
func (e *Engine) SetEnabled(enabled bool) {
	if e.settings.Enabled == enabled {
		return
	}
	e.settings.Enabled = enabled
	e.persist()
	if enabled {
		e.publish(telemetry.EventTypeEngineEnabled, "", "engine enabled")
		e.Sweep()
		return
	}
	e.publish(telemetry.EventTypeEngineDisabled, "", "engine disabled")
	for _, cc := range e.contexts {
		if cc.state == StateManaged || cc.state == StateSuspendedFullscreen {
			e.unmanage(cc)
		}
	}
}

// Toggle flips the master switch and returns the new value.
func (e *Engine) Toggle() bool {
	e.SetEnabled(!e.settings.Enabled)
	return e.settings.Enabled
}

// SetIntensity clamps to [0, 100] and syncs every managed overlay.
func (e *Engine) SetIntensity(intensity int) {
	e.settings.Intensity = clampIntensity(intensity)
	e.persist()
	for _, cc := range e.contexts {
		if cc.state == StateManaged {
			e.overlays.ApplyIntensity(cc)
		}
	}
}

// SetClearChrome controls whether titlebar filler chrome is cleared. The
// next full pass on each container applies it.
func (e *Engine) SetClearChrome(on bool) {
	if e.settings.ClearChrome == on {
		return
	}
	e.settings.ClearChrome = on
	e.persist()
}

// ToggleChrome flips chrome clearing and returns the new value.
func (e *Engine) ToggleChrome() bool {
	e.SetClearChrome(!e.settings.ClearChrome)
	return e.settings.ClearChrome
}

// Settings returns the current runtime switches.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Status snapshots the engine for inspection. Must run on the UI thread.
func (e *Engine) Status() Status {
	counts := make(map[ContainerState]int, len(e.contexts))
	for _, cc := range e.contexts {
		counts[cc.state]++
	}
	return Status{
		Supported:    e.capability.Supported,
		Material:     e.capability.Material,
		Settings:     e.settings,
		Containers:   counts,
		Passes:       e.passes,
		DroppedTicks: e.droppedTicks,
	}
}

func (e *Engine) persist() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveSettings(context.Background(), e.hst.ProcessName(), e.settings); err != nil {
		e.log.Warn().Err(err).Msg("settings save failed")
	}
}

func (e *Engine) publish(eventType, containerID, message string) {
	_ = e.events.Publish(telemetry.Event{
		Type:        eventType,
		ContainerID: containerID,
		Message:     message,
		Level:       telemetry.EventLevelInfo,
	})
}

func (e *Engine) countState(state ContainerState) int {
	n := 0
	for _, cc := range e.contexts {
		if cc.state == state {
			n++
		}
	}
	return n
}

func (e *Engine) rejected(cc *containerContext, op string, err error) {
	e.metrics.RecordMutationRejected(op)
	e.log.Debug().Str("container", cc.id).Str("op", op).Err(err).Msg("host declined mutation")
}

func clampIntensity(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (s Settings) clamped() Settings {
	s.Intensity = clampIntensity(s.Intensity)
	return s
}
