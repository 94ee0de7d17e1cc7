package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newEnabledMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func TestRecordBackdropsHidden(t *testing.T) {
	m := newEnabledMetrics(t)

	m.RecordBackdropsHidden(3)
	m.RecordBackdropsHidden(0)
	m.RecordBackdropsHidden(2)

	if got := testutil.ToFloat64(m.backdropsHidden); got != 5 {
		t.Errorf("hidden backdrop counter = %v, want 5", got)
	}
}

// Every recording method on a disabled instance is a no-op.
func TestDisabledMetricsNoOp(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordPass("full", "idle", time.Millisecond)
	m.RecordDroppedTick()
	m.SetManagedContainers(2)
	m.RecordIneligible("fullscreen")
	m.RecordOverlayCreated()
	m.RecordOverlayReinserted()
	m.RecordNodesVisited(10)
	m.RecordBackdropsHidden(1)
	m.RecordMutationRejected("set_background")
	m.RecordSignal("toggle")
}
