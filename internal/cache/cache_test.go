package cache

import (
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, ok := store.Get("sessions", "nope"); ok {
		t.Fatalf("expected missing key")
	}
	if items := store.GetAll("sessions"); len(items) != 0 {
		t.Fatalf("expected empty collection, got %d", len(items))
	}
}

func TestPutMergesFields(t *testing.T) {
	store := openTestStore(t)

	store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:    map[string]any{"status": "requested", "notes": "first"},
		UpdatedAt: 100, SyncedAt: 100,
	})
	store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:    map[string]any{"status": "accepted"},
		UpdatedAt: 200, SyncedAt: 200,
	})

	snap, ok := store.Get("sessions", "s1")
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.Fields["status"] != "accepted" {
		t.Fatalf("status not updated: %v", snap.Fields["status"])
	}
	if snap.Fields["notes"] != "first" {
		t.Fatalf("untouched field was lost: %v", snap.Fields["notes"])
	}
}

func TestConfirmedNewerWins(t *testing.T) {
	store := openTestStore(t)

	store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:    map[string]any{"status": "completed"},
		UpdatedAt: 500,
	})
	// stale confirmed data must not clobber newer confirmed data
	got := store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:    map[string]any{"status": "active"},
		UpdatedAt: 300,
	})
	if got.Fields["status"] != "completed" {
		t.Fatalf("stale write overwrote newer data: %v", got.Fields["status"])
	}
}

func TestUnconfirmedOverwrittenByConfirmed(t *testing.T) {
	store := openTestStore(t)

	store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:      map[string]any{"status": "cancelled"},
		UpdatedAt:   400,
		Unconfirmed: true,
	})
	store.Put(Snapshot{
		Collection: "sessions", ID: "s1",
		Fields:    map[string]any{"status": "active"},
		UpdatedAt: 350,
	})

	snap, _ := store.Get("sessions", "s1")
	if snap.Fields["status"] != "active" {
		t.Fatalf("confirmed data should overwrite optimistic: %v", snap.Fields["status"])
	}
}

func TestRemoveAndGetAll(t *testing.T) {
	store := openTestStore(t)

	store.Put(Snapshot{Collection: "alerts", ID: "a1", Fields: map[string]any{"x": 1.0}})
	store.Put(Snapshot{Collection: "alerts", ID: "a2", Fields: map[string]any{"x": 2.0}})
	store.Put(Snapshot{Collection: "users", ID: "u1", Fields: map[string]any{"x": 3.0}})

	if items := store.GetAll("alerts"); len(items) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(items))
	}

	store.Remove("alerts", "a1")
	store.Remove("alerts", "missing")
	if items := store.GetAll("alerts"); len(items) != 1 {
		t.Fatalf("expected 1 alert after remove, got %d", len(items))
	}
}

func TestReplaceDropsMergedFields(t *testing.T) {
	store := openTestStore(t)

	store.Put(Snapshot{Collection: "sessions", ID: "s1", Fields: map[string]any{"status": "active", "notes": "local"}})
	store.Replace(Snapshot{Collection: "sessions", ID: "s1", Fields: map[string]any{"status": "completed"}, UpdatedAt: 900})

	snap, _ := store.Get("sessions", "s1")
	if _, ok := snap.Fields["notes"]; ok {
		t.Fatalf("replace should drop old fields")
	}
	if snap.Fields["status"] != "completed" {
		t.Fatalf("unexpected status: %v", snap.Fields["status"])
	}
}
