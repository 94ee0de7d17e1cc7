package engine

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/glasspane/glasspane/pkg/host"
)

func newTestClassifier(t *testing.T, hst *host.MemoryHost, chromeOn bool) *Classifier {
	t.Helper()
	return NewClassifier(DefaultOptions(), func() bool { return chromeOn }, hst.Dispatch, zerolog.Nop(), newTestTelemetry(t).Metrics)
}

// buildTree returns a root with a fill child, a backdrop child, and an
// excluded subtree containing its own fill.
func buildTree(hst *host.MemoryHost) (root, fill, backdrop, excluded, inner *host.MemoryNode) {
	root = hst.NewNode("ContentRootNode", host.Rect{Width: 800, Height: 600}, true)
	fill = hst.NewNode("FillNode", host.Rect{Width: 800, Height: 100}, true)
	backdrop = hst.NewNode("VisualBackdropNode", host.Rect{Width: 800, Height: 600}, true)
	excluded = hst.NewNode("WebContentNode", host.Rect{Width: 800, Height: 400}, true)
	inner = hst.NewNode("FillNode", host.Rect{Width: 800, Height: 50}, false)

	_ = root.InsertChild(fill, 0)
	_ = root.InsertChild(backdrop, 1)
	_ = root.InsertChild(excluded, 2)
	_ = excluded.InsertChild(inner, 0)
	return
}

func TestClassifyFullPass(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)
	root, fill, backdrop, _, _ := buildTree(hst)

	stats := c.Classify(root, ModeFull, "")

	if !fill.Background().Transparent() {
		t.Error("fill background not cleared")
	}
	if layer, _ := fill.Layer(); layer.Opaque() {
		t.Error("fill layer still opaque")
	}
	if !root.Background().Transparent() {
		t.Error("root background not cleared")
	}

	if backdrop.Opacity() != 0 || !backdrop.Hidden() {
		t.Error("backdrop not zeroed out")
	}
	if stats.Backdrops != 1 {
		t.Errorf("Backdrops = %d, want 1", stats.Backdrops)
	}

	// Removal is deferred to the next queue turn.
	if backdrop.Parent() == nil {
		t.Fatal("backdrop removed synchronously during the walk")
	}
	hst.Flush()
	if backdrop.Parent() != nil {
		t.Error("backdrop still attached after flush")
	}
}

// The walk reads nothing inside an excluded subtree beyond the exclusion
// check on its root.
func TestClassifyLeavesExcludedSubtreeUntouched(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)
	root, _, _, excluded, inner := buildTree(hst)

	wantExcluded := excluded.Background()
	wantInner := inner.Background()

	stats := c.Classify(root, ModeFull, "")
	hst.Flush()

	if excluded.Background() != wantExcluded {
		t.Error("excluded subtree root was mutated")
	}
	if inner.Background() != wantInner {
		t.Error("node inside excluded subtree was mutated")
	}
	if stats.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", stats.Excluded)
	}
}

func TestClassifySkipsOverlayNode(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)
	root, _, _, _, _ := buildTree(hst)

	overlay, err := hst.NewBackdrop(host.BackdropSpec{Intensity: 70})
	if err != nil {
		t.Fatalf("NewBackdrop: %v", err)
	}
	if err := root.InsertChild(overlay, 0); err != nil {
		t.Fatalf("InsertChild: %v", err)
	}

	c.Classify(root, ModeFull, overlay.ID())
	if overlay.Opacity() != 0.7 {
		t.Errorf("overlay opacity = %v, the walk must not touch it", overlay.Opacity())
	}
}

// The classifier never requests layer-backing on a layer-less node.
func TestClassifyNeverForcesLayers(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)

	root := hst.NewNode("ContentRootNode", host.Rect{Width: 100, Height: 100}, true)
	plain := hst.NewNode("FillNode", host.Rect{Width: 100, Height: 50}, false)
	_ = root.InsertChild(plain, 0)

	c.Classify(root, ModeFull, "")

	if _, ok := plain.Layer(); ok {
		t.Error("layer-less node acquired a layer during classification")
	}
	if !plain.Background().Transparent() {
		t.Error("layer-less node background not cleared")
	}
}

// One refusing node must not abort the rest of the walk.
func TestClassifyFailureIsolation(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)

	root := hst.NewNode("ContentRootNode", host.Rect{Width: 100, Height: 100}, true)
	bad := hst.NewNode("FillNode", host.Rect{Width: 100, Height: 50}, false)
	good := hst.NewNode("FillNode", host.Rect{Width: 100, Height: 50}, false)
	_ = root.InsertChild(bad, 0)
	_ = root.InsertChild(good, 1)
	bad.RejectMutations(true)

	stats := c.Classify(root, ModeFull, "")

	if stats.Rejected == 0 {
		t.Error("rejection was not recorded")
	}
	if !good.Background().Transparent() {
		t.Error("sibling of a refusing node was not cleared")
	}
}

func TestClassifyShallowDepthLimit(t *testing.T) {
	hst := host.NewMemoryHost()
	c := newTestClassifier(t, hst, false)

	root := hst.NewNode("ContentRootNode", host.Rect{Width: 100, Height: 100}, true)
	level1 := hst.NewNode("FillNode", host.Rect{Width: 100, Height: 50}, false)
	level2 := hst.NewNode("FillNode", host.Rect{Width: 100, Height: 25}, false)
	_ = root.InsertChild(level1, 0)
	_ = level1.InsertChild(level2, 0)

	c.Classify(root, ModeShallow, "")

	if !level1.Background().Transparent() {
		t.Error("first level not cleared in shallow mode")
	}
	if level2.Background().Transparent() {
		t.Error("node below the shallow depth limit was mutated")
	}

	c.Classify(root, ModeFull, "")
	if !level2.Background().Transparent() {
		t.Error("full mode did not reach below the shallow limit")
	}
}

func TestClassifyChromeOnlyWhenEnabled(t *testing.T) {
	hst := host.NewMemoryHost()

	root := hst.NewNode("ContentRootNode", host.Rect{Width: 100, Height: 100}, true)
	chrome := hst.NewNode("TitlebarFillNode", host.Rect{Width: 100, Height: 22}, true)
	_ = root.InsertChild(chrome, 0)

	off := newTestClassifier(t, hst, false)
	off.Classify(root, ModeFull, "")
	if chrome.Hidden() {
		t.Fatal("chrome node hidden while chrome clearing is off")
	}

	on := newTestClassifier(t, hst, true)
	on.Classify(root, ModeFull, "")
	if !chrome.Hidden() {
		t.Error("chrome node not hidden while chrome clearing is on")
	}
}
