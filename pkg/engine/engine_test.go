package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glasspane/glasspane/pkg/host"
	"github.com/glasspane/glasspane/pkg/telemetry"
)

func newTestTelemetry(t *testing.T) *telemetry.Telemetry {
	t.Helper()
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "fatal"
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.Enabled = false
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}
	return tel
}

// newTestEngine attaches an engine to a fresh memory host. The test
// goroutine is the UI thread; drive queued work with hst.Flush.
func newTestEngine(t *testing.T, hostOpts ...host.MemoryOption) (*Engine, *host.MemoryHost) {
	t.Helper()
	hst := host.NewMemoryHost(hostOpts...)
	eng := New(hst, DefaultOptions(), Settings{Enabled: true, Intensity: 70}, newTestTelemetry(t), nil)
	if err := eng.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	hst.Flush()
	return eng, hst
}

func newEligibleContainer(hst *host.MemoryHost, title string) (*host.MemoryContainer, *host.MemoryNode) {
	c := hst.CreateContainer(host.ContainerConfig{
		Title: title,
		Style: host.StyleTitled | host.StyleClosable | host.StyleResizable,
	})
	root := hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
	c.AssignRoot(root)
	hst.Flush()
	return c, root
}

func overlayOf(t *testing.T, root *host.MemoryNode) host.Node {
	t.Helper()
	children := root.Children()
	if len(children) == 0 {
		t.Fatal("root has no children, expected an overlay")
	}
	if children[0].Class() != "BackdropNode" {
		t.Fatalf("bottom-most child class = %q, want BackdropNode", children[0].Class())
	}
	return children[0]
}

func idleTick(hst *host.MemoryHost) {
	hst.FireTimers()
	hst.Flush()
}

func TestManageOnCreate(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "report")

	cc, ok := eng.contexts[c.ID()]
	if !ok {
		t.Fatal("no context created for eligible container")
	}
	if cc.state != StateManaged {
		t.Fatalf("state = %s, want managed", cc.state)
	}

	overlay := overlayOf(t, root)
	layer, ok := overlay.Layer()
	if !ok {
		t.Fatal("overlay is not layer-backed")
	}
	if layer.ZPosition() != overlayDepth {
		t.Errorf("overlay depth = %g, want %g", layer.ZPosition(), float64(overlayDepth))
	}
	if c.Opaque() {
		t.Error("container still opaque after management")
	}
	if !c.Background().Transparent() {
		t.Error("container background not cleared")
	}
}

func TestUnsupportedHostStaysInert(t *testing.T) {
	eng, hst := newTestEngine(t, host.WithoutBackdrop())

	c := hst.CreateContainer(host.ContainerConfig{
		Title: "report",
		Style: host.StyleTitled,
	})
	root := hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
	c.AssignRoot(root)
	hst.Flush()

	if len(eng.contexts) != 0 {
		t.Error("contexts exist on an unsupported host")
	}
	if len(root.Children()) != 0 {
		t.Error("tree was mutated on an unsupported host")
	}
	if !c.Opaque() {
		t.Error("container appearance touched on an unsupported host")
	}
	if eng.Status().Supported {
		t.Error("status reports supported")
	}
}

func TestIneligibleContainersNeverManaged(t *testing.T) {
	tests := []struct {
		name string
		cfg  host.ContainerConfig
	}{
		{
			name: "alert kind",
			cfg:  host.ContainerConfig{Kind: host.KindAlert, Style: host.StyleTitled},
		},
		{
			name: "utility panel",
			cfg:  host.ContainerConfig{Kind: host.KindUtility, Style: host.StyleTitled},
		},
		{
			name: "elevated level",
			cfg:  host.ContainerConfig{Level: host.WindowLevel(3), Style: host.StyleTitled},
		},
		{
			name: "undecorated",
			cfg:  host.ContainerConfig{Style: host.StyleBorderless},
		},
		{
			name: "denied title",
			cfg:  host.ContainerConfig{Title: "Go To Folder", Style: host.StyleTitled},
		},
		{
			name: "born fullscreen",
			cfg:  host.ContainerConfig{Fullscreen: true, Style: host.StyleTitled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, hst := newTestEngine(t)
			c := hst.CreateContainer(tt.cfg)
			root := hst.NewNode("ContentRootNode", host.Rect{Width: 400, Height: 300}, true)
			c.AssignRoot(root)
			hst.Flush()

			if _, ok := eng.contexts[c.ID()]; ok {
				t.Error("context created for ineligible container")
			}
			if len(root.Children()) != 0 {
				t.Error("tree mutated for ineligible container")
			}
		})
	}
}

// Disabling restores the exact pre-management appearance; re-enabling
// rebuilds the overlay on the sweep.
func TestDisableEnableRoundTrip(t *testing.T) {
	eng, hst := newTestEngine(t)

	c := hst.CreateContainer(host.ContainerConfig{
		Title: "report",
		Style: host.StyleTitled | host.StyleResizable,
	})
	wantBackground := c.Background()
	wantOpaque := c.Opaque()
	root := hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
	rootPaint := root.Background()
	c.AssignRoot(root)
	hst.Flush()

	eng.SetEnabled(false)
	hst.Flush()

	if c.Background() != wantBackground {
		t.Errorf("background = %v after disable, want %v", c.Background(), wantBackground)
	}
	if c.Opaque() != wantOpaque {
		t.Errorf("opaque = %v after disable, want %v", c.Opaque(), wantOpaque)
	}
	if root.Background() != rootPaint {
		t.Errorf("root paint = %v after disable, want %v", root.Background(), rootPaint)
	}
	if len(root.Children()) != 0 {
		t.Error("overlay still attached after disable")
	}
	if hst.TimerCount() != 0 || hst.Clock().SubscriberCount() != 0 {
		t.Error("scheduler subscriptions survived disable")
	}

	eng.SetEnabled(true)
	hst.Flush()

	overlayOf(t, root)
	if cc := eng.contexts[c.ID()]; cc == nil || cc.state != StateManaged {
		t.Error("container not re-managed after enable")
	}
}

// Fullscreen suspends management and restores the original appearance;
// exit resumes only after the settle timer fires.
func TestFullscreenRoundTrip(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "deck")
	original := host.Paint{R: 236, G: 236, B: 236, A: 255}

	c.SetFullscreen(true)
	hst.Flush()

	cc := eng.contexts[c.ID()]
	if cc.state != StateSuspendedFullscreen {
		t.Fatalf("state = %s after fullscreen, want suspended", cc.state)
	}
	if len(root.Children()) != 0 {
		t.Error("overlay still attached in fullscreen")
	}
	if c.Background() != original {
		t.Errorf("appearance not restored in fullscreen: %v", c.Background())
	}

	c.SetFullscreen(false)
	hst.Flush()
	if cc.state != StateSuspendedFullscreen {
		t.Fatalf("resumed before the settle delay elapsed")
	}

	idleTick(hst)

	if cc.state != StateManaged {
		t.Fatalf("state = %s after settle, want managed", cc.state)
	}
	overlayOf(t, root)
}

// A fullscreen re-entry during the settle window must cancel the pending
// resume.
func TestSettleCanceledByFullscreenReentry(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "deck")

	c.SetFullscreen(true)
	hst.Flush()
	c.SetFullscreen(false)
	hst.Flush()
	c.SetFullscreen(true)
	hst.Flush()

	idleTick(hst)

	cc := eng.contexts[c.ID()]
	if cc.state != StateSuspendedFullscreen {
		t.Fatalf("state = %s, want still suspended", cc.state)
	}
	if len(root.Children()) != 0 {
		t.Error("overlay recreated while fullscreen")
	}
}

// A foreign node prepended below the overlay is displaced by the next
// reconciliation pass.
func TestOverlayReinsertedAfterForeignPrepend(t *testing.T) {
	_, hst := newTestEngine(t)
	_, root := newEligibleContainer(hst, "report")
	overlay := overlayOf(t, root)

	stranger := hst.NewNode("FillNode", host.Rect{Width: 800, Height: 600}, false)
	if err := root.InsertChild(stranger, 0); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}
	if root.Children()[0].ID() == overlay.ID() {
		t.Fatal("prepend did not displace the overlay")
	}

	idleTick(hst)

	if got := root.Children()[0].ID(); got != overlay.ID() {
		t.Errorf("bottom-most child = %s after pass, want overlay %s", got, overlay.ID())
	}
}

// A burst of frame ticks inside one debounce interval yields exactly one
// pass; the rest are counted as dropped.
func TestFrameBurstDebounce(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "feed")

	// Make the container interactive so the frame cadence applies.
	c.Scroll(root)
	hst.Flush()

	passesBefore := eng.passes
	droppedBefore := eng.droppedTicks

	base := time.Now()
	for i := 0; i < 5; i++ {
		hst.Clock().Tick(base.Add(time.Duration(i) * time.Millisecond))
	}
	hst.Flush()

	if got := eng.passes - passesBefore; got != 1 {
		t.Errorf("burst produced %d passes, want 1", got)
	}
	if got := eng.droppedTicks - droppedBefore; got != 4 {
		t.Errorf("burst dropped %d ticks, want 4", got)
	}

	hst.Clock().Tick(base.Add(DefaultOptions().ActiveInterval + time.Millisecond))
	hst.Flush()
	if got := eng.passes - passesBefore; got != 2 {
		t.Errorf("tick after the interval produced %d total passes, want 2", got)
	}
}

// Frame ticks are ignored for non-interactive containers; the idle
// cadence covers them.
func TestFrameTicksIgnoredWhenIdle(t *testing.T) {
	eng, hst := newTestEngine(t)
	newEligibleContainer(hst, "report")

	passesBefore := eng.passes
	hst.Clock().Tick(time.Now())
	hst.Flush()
	if eng.passes != passesBefore {
		t.Error("frame tick ran a pass on an idle container")
	}

	idleTick(hst)
	if eng.passes != passesBefore+1 {
		t.Errorf("idle tick produced %d passes, want 1", eng.passes-passesBefore)
	}
}

// A tick marshaled before close must find nothing after it: the context
// is evicted and the queued closure drops silently.
func TestStaleTickAfterCloseIsDropped(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, _ := newEligibleContainer(hst, "report")
	original := host.Paint{R: 236, G: 236, B: 236, A: 255}

	// Enqueue a tick, then close before it drains.
	hst.FireTimers()
	c.Close()

	passesBefore := eng.passes
	hst.Flush()

	if eng.passes != passesBefore {
		t.Error("stale tick ran a pass on a closed container")
	}
	if _, ok := eng.contexts[c.ID()]; ok {
		t.Error("context survived close")
	}
	if c.Background() != original {
		t.Errorf("appearance not restored on close: %v", c.Background())
	}
	if hst.TimerCount() != 0 || hst.Clock().SubscriberCount() != 0 {
		t.Error("scheduler subscriptions survived close")
	}
}

func TestIntensitySyncsManagedOverlays(t *testing.T) {
	eng, hst := newTestEngine(t)
	_, root := newEligibleContainer(hst, "report")
	overlay := overlayOf(t, root)

	eng.SetIntensity(30)
	if overlay.Opacity() != 0.3 {
		t.Errorf("opacity = %v after SetIntensity(30), want 0.3", overlay.Opacity())
	}

	eng.SetIntensity(250)
	if eng.Settings().Intensity != 100 {
		t.Errorf("intensity = %d, want clamped to 100", eng.Settings().Intensity)
	}
	if overlay.Opacity() != 1.0 {
		t.Errorf("opacity = %v after clamp, want 1.0", overlay.Opacity())
	}

	eng.SetIntensity(-5)
	if eng.Settings().Intensity != 0 {
		t.Errorf("intensity = %d, want clamped to 0", eng.Settings().Intensity)
	}
}

func TestRedrawSuppressedInsideExcludedSubtree(t *testing.T) {
	_, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "browser")

	web := hst.NewNode("WebContentNode", host.Rect{Width: 800, Height: 500}, true)
	inner := hst.NewNode("FillNode", host.Rect{Width: 800, Height: 100}, false)
	if err := web.InsertChild(inner, 0); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}
	if err := root.InsertChild(web, 1); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}
	plain := hst.NewNode("FillNode", host.Rect{Width: 800, Height: 100}, false)
	if err := root.InsertChild(plain, 2); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}

	if c.RequestRedraw(inner) {
		t.Error("redraw inside excluded subtree was not suppressed")
	}
	if !c.RequestRedraw(plain) {
		t.Error("redraw of a plain node was suppressed")
	}
}

func TestLiveResizeRunsHealingPass(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "editor")
	overlay := overlayOf(t, root)

	passesBefore := eng.passes
	c.BeginLiveResize()
	c.SetContentSize(host.Rect{Width: 1024, Height: 768})
	c.EndLiveResize()
	hst.Flush()

	if eng.passes != passesBefore+1 {
		t.Errorf("live-resize end produced %d passes, want 1", eng.passes-passesBefore)
	}

	wantFrame := host.Rect{Width: 1024, Height: 768}.Outset(DefaultOptions().OverlayOutset)
	if overlay.Frame() != wantFrame {
		t.Errorf("overlay frame = %v after resize, want %v", overlay.Frame(), wantFrame)
	}
	if cc := eng.contexts[c.ID()]; cc.liveResize {
		t.Error("liveResize flag still set after end")
	}
}

func TestStatusCounts(t *testing.T) {
	eng, hst := newTestEngine(t)
	newEligibleContainer(hst, "one")
	c2, _ := newEligibleContainer(hst, "two")
	c2.SetFullscreen(true)
	hst.Flush()

	status := eng.Status()
	if !status.Supported {
		t.Error("status should report supported")
	}
	if status.Containers[StateManaged] != 1 {
		t.Errorf("managed count = %d, want 1", status.Containers[StateManaged])
	}
	if status.Containers[StateSuspendedFullscreen] != 1 {
		t.Errorf("suspended count = %d, want 1", status.Containers[StateSuspendedFullscreen])
	}
}

// fakeStore records settings persistence calls.
type fakeStore struct {
	saved    []Settings
	seed     Settings
	seeded   bool
	loadErr  error
	saveErr  error
}

func (s *fakeStore) LoadSettings(_ context.Context, _ string) (Settings, bool, error) {
	return s.seed, s.seeded, s.loadErr
}

func (s *fakeStore) SaveSettings(_ context.Context, _ string, settings Settings) error {
	s.saved = append(s.saved, settings)
	return s.saveErr
}

func TestPersistedSettingsOverrideInitial(t *testing.T) {
	hst := host.NewMemoryHost()
	store := &fakeStore{seed: Settings{Enabled: false, Intensity: 40}, seeded: true}
	eng := New(hst, DefaultOptions(), Settings{Enabled: true, Intensity: 70}, newTestTelemetry(t), store)
	if err := eng.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	hst.Flush()

	if eng.Settings().Enabled {
		t.Error("persisted disabled state not applied")
	}

	_, root := newEligibleContainer(hst, "report")
	if len(root.Children()) != 0 {
		t.Error("container managed while persisted settings disable the engine")
	}

	eng.SetEnabled(true)
	hst.Flush()
	if len(store.saved) == 0 {
		t.Fatal("settings change was not persisted")
	}
	last := store.saved[len(store.saved)-1]
	if !last.Enabled || last.Intensity != 40 {
		t.Errorf("persisted settings = %+v, want enabled with intensity 40", last)
	}
}

func TestToggleChrome(t *testing.T) {
	eng, _ := newTestEngine(t)
	if eng.Settings().ClearChrome {
		t.Fatal("chrome clearing should start off")
	}
	if !eng.ToggleChrome() {
		t.Error("first toggle should turn chrome clearing on")
	}
	if eng.ToggleChrome() {
		t.Error("second toggle should turn it back off")
	}
}

// A container created fullscreen has no context; leaving fullscreen is
// its first eligible moment and must bring it under management.
func TestBornFullscreenManagedAfterExit(t *testing.T) {
	eng, hst := newTestEngine(t)

	c := hst.CreateContainer(host.ContainerConfig{
		Title:      "deck",
		Style:      host.StyleTitled | host.StyleResizable,
		Fullscreen: true,
	})
	root := hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
	c.AssignRoot(root)
	hst.Flush()

	if _, ok := eng.contexts[c.ID()]; ok {
		t.Fatal("context created while the container is fullscreen")
	}

	c.SetFullscreen(false)
	hst.Flush()

	cc, ok := eng.contexts[c.ID()]
	if !ok {
		t.Fatal("no context after fullscreen exit")
	}
	if cc.state != StateManaged {
		t.Fatalf("state = %s after fullscreen exit, want managed", cc.state)
	}
	overlayOf(t, root)
}

// A suspended container that turns ineligible for a reason other than
// fullscreen is torn down to unmanaged, settle timer included.
func TestSuspendedIneligibleUnmanagedOnHook(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "deck")

	c.SetFullscreen(true)
	hst.Flush()
	c.SetFullscreen(false)
	hst.Flush()

	c.SetTitle("Go To Folder")
	c.OrderFront()
	hst.Flush()

	cc := eng.contexts[c.ID()]
	if cc.state != StateUnmanaged {
		t.Fatalf("state = %s, want unmanaged", cc.state)
	}
	if len(root.Children()) != 0 {
		t.Error("overlay present on an unmanaged container")
	}
	if hst.TimerCount() != 0 || hst.Clock().SubscriberCount() != 0 {
		t.Error("scheduler subscriptions survived unmanage")
	}
}

// When the settle re-check fails the container stays suspended; the next
// hook that finds it eligible again retries the resume.
func TestStrandedSuspendResumedByNextHook(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "deck")

	c.SetFullscreen(true)
	hst.Flush()
	c.SetFullscreen(false)
	hst.Flush()

	// The denied title makes the settle re-check fail.
	c.SetTitle("Go To Folder")
	idleTick(hst)

	cc := eng.contexts[c.ID()]
	if cc.state != StateSuspendedFullscreen {
		t.Fatalf("state = %s after failed settle, want still suspended", cc.state)
	}
	if cc.cancelSettle != nil {
		t.Fatal("settle timer still armed after the re-check consumed it")
	}

	c.SetTitle("deck")
	c.OrderFront()
	hst.Flush()

	if cc.state != StateManaged {
		t.Fatalf("state = %s after retry hook, want managed", cc.state)
	}
	overlayOf(t, root)
}

// A settle fire already queued when fullscreen re-enters and exits again
// must not collapse the rearmed delay.
func TestSettleRearmIgnoresStaleFire(t *testing.T) {
	eng, hst := newTestEngine(t)
	c, root := newEligibleContainer(hst, "deck")

	c.SetFullscreen(true)
	hst.Flush()
	c.SetFullscreen(false)
	hst.Flush()

	// Fire the first settle timer but leave its dispatch queued, then
	// re-enter and exit so a fresh delay is armed before it drains.
	hst.FireTimers()
	c.SetFullscreen(true)
	c.SetFullscreen(false)
	hst.Flush()

	cc := eng.contexts[c.ID()]
	if cc.state != StateSuspendedFullscreen {
		t.Fatalf("state = %s, stale fire collapsed the rearmed delay", cc.state)
	}
	if len(root.Children()) != 0 {
		t.Error("overlay recreated before the rearmed delay elapsed")
	}

	idleTick(hst)
	if cc.state != StateManaged {
		t.Fatalf("state = %s after the rearmed settle, want managed", cc.state)
	}
	overlayOf(t, root)
}

// Overlay invariants are checked at the end of shallow passes too; a
// displacement the repair path cannot fix is reported.
func TestShallowPassVerifiesOverlayInvariants(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "engine.log")
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = logPath
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.Enabled = false
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}

	hst := host.NewMemoryHost()
	eng := New(hst, DefaultOptions(), Settings{Enabled: true, Intensity: 70}, tel, nil)
	if err := eng.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	hst.Flush()

	c, root := newEligibleContainer(hst, "feed")
	overlay := overlayOf(t, root)

	stranger := hst.NewNode("FillNode", host.Rect{Width: 800, Height: 600}, false)
	if err := root.InsertChild(stranger, 0); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}
	root.RejectMutations(true)

	// Interactive, so the frame tick runs a shallow pass.
	c.Scroll(stranger)
	hst.Clock().Tick(time.Now())
	hst.Flush()

	if root.Children()[0].ID() == overlay.ID() {
		t.Fatal("displacement was repaired despite rejected mutations")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "invariant violation") {
		t.Error("shallow pass did not report the displaced overlay")
	}
}

// Every completed pass publishes an event carrying the container.
func TestPassCompletedEventPublished(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "fatal"
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Events.EnableAsync = false
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("Failed to create telemetry: %v", err)
	}

	var passEvents []telemetry.Event
	tel.Events.Subscribe(func(ev telemetry.Event) {
		passEvents = append(passEvents, ev)
	}, func(ev telemetry.Event) bool {
		return ev.Type == telemetry.EventTypePassCompleted
	})

	hst := host.NewMemoryHost()
	eng := New(hst, DefaultOptions(), Settings{Enabled: true, Intensity: 70}, tel, nil)
	if err := eng.Attach(context.Background()); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	hst.Flush()

	c, _ := newEligibleContainer(hst, "report")
	idleTick(hst)

	if len(passEvents) == 0 {
		t.Fatal("no pass events published")
	}
	last := passEvents[len(passEvents)-1]
	if last.ContainerID != c.ID() {
		t.Errorf("pass event container = %q, want %q", last.ContainerID, c.ID())
	}
}
