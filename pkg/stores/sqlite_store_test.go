package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glasspane/glasspane/pkg/engine"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, found, err := store.LoadSettings(ctx, "editor"); err != nil || found {
		t.Fatalf("LoadSettings on empty store: found=%v err=%v", found, err)
	}

	want := engine.Settings{Enabled: true, Intensity: 45, ClearChrome: true}
	if err := store.SaveSettings(ctx, "editor", want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	got, found, err := store.LoadSettings(ctx, "editor")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if !found {
		t.Fatal("settings not found after save")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSaveSettingsUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := engine.Settings{Enabled: true, Intensity: 70}
	if err := store.SaveSettings(ctx, "editor", first); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	second := engine.Settings{Enabled: false, Intensity: 20, ClearChrome: true}
	if err := store.SaveSettings(ctx, "editor", second); err != nil {
		t.Fatalf("SaveSettings update: %v", err)
	}

	got, found, err := store.LoadSettings(ctx, "editor")
	if err != nil || !found {
		t.Fatalf("LoadSettings: found=%v err=%v", found, err)
	}
	if got != second {
		t.Errorf("got %+v, want %+v", got, second)
	}

	records, err := store.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("upsert created %d rows, want 1", len(records))
	}
}

func TestDeleteSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSettings(ctx, "editor", engine.Settings{Enabled: true, Intensity: 50}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if err := store.DeleteSettings(ctx, "editor"); err != nil {
		t.Fatalf("DeleteSettings: %v", err)
	}
	if _, found, err := store.LoadSettings(ctx, "editor"); err != nil || found {
		t.Errorf("settings survived delete: found=%v err=%v", found, err)
	}

	// Deleting a missing row is not an error.
	if err := store.DeleteSettings(ctx, "editor"); err != nil {
		t.Errorf("DeleteSettings on missing row: %v", err)
	}
}

func TestListSettingsOrdersByProcess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, process := range []string{"terminal", "browser", "editor"} {
		if err := store.SaveSettings(ctx, process, engine.Settings{Enabled: true, Intensity: 70}); err != nil {
			t.Fatalf("SaveSettings(%s): %v", process, err)
		}
	}

	records, err := store.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	want := []string{"browser", "editor", "terminal"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, rec := range records {
		if rec.Process != want[i] {
			t.Errorf("records[%d].Process = %q, want %q", i, rec.Process, want[i])
		}
		if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
			t.Errorf("records[%d] missing timestamps", i)
		}
	}
}

func TestRecentEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []EventRecord{
		{Process: "editor", Type: "container.managed", ContainerID: "c1", Level: "info", CreatedAt: base},
		{Process: "editor", Type: "container.suspended", ContainerID: "c1", Level: "info", CreatedAt: base.Add(time.Minute)},
		{Process: "browser", Type: "container.managed", ContainerID: "c2", Level: "info", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		if err := store.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	all, err := store.RecentEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if all[0].Type != "container.managed" || all[0].Process != "browser" {
		t.Errorf("newest first violated: %+v", all[0])
	}
	if all[0].ID == "" {
		t.Error("missing ID should have been generated")
	}

	scoped, err := store.RecentEvents(ctx, "editor", 10)
	if err != nil {
		t.Fatalf("RecentEvents scoped: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("got %d editor events, want 2", len(scoped))
	}
	for _, ev := range scoped {
		if ev.Process != "editor" {
			t.Errorf("scoped query leaked %+v", ev)
		}
	}

	limited, err := store.RecentEvents(ctx, "", 1)
	if err != nil {
		t.Fatalf("RecentEvents limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d events, want 1", len(limited))
	}
}

func TestPruneEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ev := EventRecord{
			Process:   "editor",
			Type:      "pass.completed",
			Level:     "debug",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := store.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	pruned, err := store.PruneEvents(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("PruneEvents: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned %d rows, want 2", pruned)
	}

	remaining, err := store.RecentEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("%d events remain, want 2", len(remaining))
	}
}
