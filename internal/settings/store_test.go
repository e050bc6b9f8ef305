package settings_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dupefinder/internal/settings"
)

func openStore(t *testing.T) *settings.Store {
	t.Helper()
	store, err := settings.OpenPath(filepath.Join(t.TempDir(), "state", "dupefinder.db"))
	if err != nil {
		t.Fatalf("OpenPath returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetReturnsDefaultWhenUnset(t *testing.T) {
	store := openStore(t)
	value, err := store.Get(context.Background(), "missing", "fallback")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "fallback" {
		t.Fatalf("expected default, got %q", value)
	}
}

func TestSetOverwrites(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.Set(ctx, settings.KeyLastDirectory, "/one"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, settings.KeyLastDirectory, "/two"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, err := store.Get(ctx, settings.KeyLastDirectory, "")
	if err != nil || value != "/two" {
		t.Fatalf("Get = %q, %v", value, err)
	}
}

func TestLoadAndSaveRoundTripAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dupefinder.db")
	ctx := context.Background()
	defaults := settings.Settings{MinSize: 512}

	store, err := settings.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	loaded, err := store.Load(ctx, defaults)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != defaults {
		t.Fatalf("expected defaults before save, got %+v", loaded)
	}

	want := settings.Settings{MinSize: 1 << 20, FollowSymlinks: true, LastDirectory: "/data/photos"}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := settings.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Load(ctx, defaults)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadIgnoresCorruptValues(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.Set(ctx, settings.KeyMinSize, "lots"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, settings.KeyFollowSymlinks, "maybe"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Load(ctx, settings.Settings{MinSize: 7, FollowSymlinks: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MinSize != 7 || !got.FollowSymlinks {
		t.Fatalf("expected defaults for corrupt values, got %+v", got)
	}
}

func TestSaveRejectsNegativeMinSize(t *testing.T) {
	store := openStore(t)
	if err := store.Save(context.Background(), settings.Settings{MinSize: -1}); err == nil {
		t.Fatal("expected error for negative min size")
	}
}

func TestScanHistoryLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	older := settings.ScanRecord{SessionID: "s1", Directory: "/a", State: "running", StartedAt: time.Now().Add(-time.Hour)}
	newer := settings.ScanRecord{SessionID: "s2", Directory: "/b", MinSize: 10, FollowSymlinks: true, State: "running", StartedAt: time.Now()}
	for _, rec := range []settings.ScanRecord{older, newer} {
		if err := store.BeginScan(ctx, rec); err != nil {
			t.Fatalf("BeginScan(%s): %v", rec.SessionID, err)
		}
	}

	total := int64(3)
	newer.State = "completed"
	newer.Format = "structured"
	newer.Groups = 1
	newer.Duplicates = 2
	newer.TotalFiles = &total
	if err := store.FinishScan(ctx, newer); err != nil {
		t.Fatalf("FinishScan: %v", err)
	}
	older.State = "failed"
	older.ErrorKind = "engine_execution_failed"
	older.ErrorMessage = "exit status 1"
	if err := store.FinishScan(ctx, older); err != nil {
		t.Fatalf("FinishScan: %v", err)
	}

	records, err := store.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(records) != 2 || records[0].SessionID != "s2" || records[1].SessionID != "s1" {
		t.Fatalf("unexpected ordering: %+v", records)
	}
	first := records[0]
	if first.State != "completed" || first.Groups != 1 || first.Duplicates != 2 || !first.FollowSymlinks || first.MinSize != 10 {
		t.Fatalf("unexpected record: %+v", first)
	}
	if first.TotalFiles == nil || *first.TotalFiles != 3 || first.FinishedAt == nil {
		t.Fatalf("expected total files and finish time, got %+v", first)
	}
	if records[1].TotalFiles != nil || records[1].ErrorKind != "engine_execution_failed" {
		t.Fatalf("unexpected failed record: %+v", records[1])
	}

	limited, err := store.ListScans(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("ListScans(1) = %d records, %v", len(limited), err)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dupefinder.db")
	store, err := settings.OpenPath(dbPath)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := settings.ForceSchemaVersionForTest(store, 99); err != nil {
		t.Fatalf("force version: %v", err)
	}
	_ = store.Close()

	if _, err := settings.OpenPath(dbPath); !errors.Is(err, settings.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
