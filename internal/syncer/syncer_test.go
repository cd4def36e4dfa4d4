package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-carewatch/internal/cache"

	"github.com/sirupsen/logrus"
)

type fakeStrategy struct {
	provenance Provenance
	fields     map[string]any
	fetchErr   error
	updateErr  error
	updates    []map[string]any
}

func (f *fakeStrategy) Provenance() Provenance {
	return f.provenance
}

func (f *fakeStrategy) Fetch(context.Context, string, string) (map[string]any, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := map[string]any{}
	for k, v := range f.fields {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStrategy) Update(_ context.Context, _, _ string, fields map[string]any) (map[string]any, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, fields)
	merged := map[string]any{}
	for k, v := range f.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated_at"] = float64(time.Now().UnixMilli())
	f.fields = merged
	return merged, nil
}

func newTestSyncer(t *testing.T, read, write []Strategy) *Syncer {
	t.Helper()
	store, err := cache.Open("")
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(store, log, read, write)
}

func TestFetchPrefersAPIOverStore(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fields: map[string]any{"status": "active"}}
	store := &fakeStrategy{provenance: ProvenanceStore, fields: map[string]any{"status": "stale"}}
	s := newTestSyncer(t, []Strategy{api, store}, nil)

	res, err := s.Fetch(context.Background(), "sessions", "s1", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Provenance != ProvenanceServer || res.Fields["status"] != "active" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.Confirmed {
		t.Fatalf("server read should be confirmed")
	}
}

func TestFetchFallsBackToStoreThenCache(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}}
	store := &fakeStrategy{provenance: ProvenanceStore, fields: map[string]any{"status": "accepted"}}
	s := newTestSyncer(t, []Strategy{api, store}, nil)

	res, err := s.Fetch(context.Background(), "sessions", "s1", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Provenance != ProvenanceStore {
		t.Fatalf("expected store provenance, got %s", res.Provenance)
	}

	// both remote layers down: the cached copy from the last success serves
	store.fetchErr = &NetworkError{Op: "get", Err: errors.New("down")}
	res, err = s.Fetch(context.Background(), "sessions", "s1", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Provenance != ProvenanceCache || res.Fields["status"] != "accepted" {
		t.Fatalf("expected cached fallback: %+v", res)
	}
}

func TestFetchFallsThroughToTokenClaims(t *testing.T) {
	store := &fakeStrategy{provenance: ProvenanceStore, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}}
	token := NewTokenStrategy(func(id string) map[string]any {
		if id != "u1" {
			return nil
		}
		return map[string]any{"id": id, "role": "sitter"}
	})
	s := newTestSyncer(t, []Strategy{store, token}, []Strategy{store})

	res, err := s.Fetch(context.Background(), "users", "u1", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Provenance != ProvenanceToken {
		t.Fatalf("expected token provenance, got %s", res.Provenance)
	}
	if res.Fields["id"] != "u1" || res.Fields["role"] != "sitter" {
		t.Fatalf("unexpected fields: %+v", res.Fields)
	}

	if _, err := s.Fetch(context.Background(), "users", "u2", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown caller should stay not found, got %v", err)
	}
}

func TestFetchNotFound(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fetchErr: ErrNotFound}
	s := newTestSyncer(t, []Strategy{api}, nil)

	if _, err := s.Fetch(context.Background(), "sessions", "missing", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchInstantServesCacheAndRefreshes(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fields: map[string]any{"status": "active"}}
	s := newTestSyncer(t, []Strategy{api}, nil)

	// seed cache
	if _, err := s.Fetch(context.Background(), "sessions", "s1", false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := s.Fetch(context.Background(), "sessions", "s1", true)
	if err != nil {
		t.Fatalf("instant fetch: %v", err)
	}
	if res.Provenance != ProvenanceCache {
		t.Fatalf("expected cache provenance, got %s", res.Provenance)
	}
}

func TestUpdateOptimisticReadProperty(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}, updateErr: &NetworkError{Op: "patch", Err: errors.New("down")}}
	store := &fakeStrategy{provenance: ProvenanceStore, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}, updateErr: &NetworkError{Op: "exec", Err: errors.New("down")}}
	s := newTestSyncer(t, []Strategy{api, store}, []Strategy{api, store})

	res, err := s.Update(context.Background(), "sessions", "s1", map[string]any{"status": "cancelled"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Confirmed || res.Provenance != ProvenanceOptimistic {
		t.Fatalf("expected unconfirmed optimistic result: %+v", res)
	}

	// immediate read returns the optimistic fields
	read, err := s.Fetch(context.Background(), "sessions", "s1", false)
	if err != nil {
		t.Fatalf("fetch after update: %v", err)
	}
	if read.Fields["status"] != "cancelled" {
		t.Fatalf("optimistic value not readable: %+v", read.Fields)
	}
	if read.Confirmed {
		t.Fatalf("read should carry unconfirmed flag")
	}
	if s.Confirmed("sessions", "s1") {
		t.Fatalf("Confirmed should report false")
	}
}

func TestUpdateFallsBackToStore(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, updateErr: &NetworkError{Op: "patch", Err: errors.New("down")}}
	store := &fakeStrategy{provenance: ProvenanceStore, fields: map[string]any{"status": "active"}}
	s := newTestSyncer(t, []Strategy{api, store}, []Strategy{api, store})

	res, err := s.Update(context.Background(), "sessions", "s1", map[string]any{"status": "cancelled"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !res.Confirmed || res.Provenance != ProvenanceStore {
		t.Fatalf("expected confirmed store write: %+v", res)
	}
	if res.Fields["status"] != "cancelled" {
		t.Fatalf("unexpected fields: %+v", res.Fields)
	}
	if !s.Confirmed("sessions", "s1") {
		t.Fatalf("no unconfirmed flag should remain")
	}
	if len(store.updates) != 1 {
		t.Fatalf("store should have received the write")
	}
}

func TestResyncRetriesPendingWrite(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, updateErr: &NetworkError{Op: "patch", Err: errors.New("down")}, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}}
	s := newTestSyncer(t, []Strategy{api}, []Strategy{api})
	s.Track("sessions", "s1")

	if _, err := s.Update(context.Background(), "sessions", "s1", map[string]any{"status": "cancelled"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Confirmed("sessions", "s1") {
		t.Fatalf("expected unconfirmed state")
	}

	// backend recovers; resync retries the write and confirms it
	api.updateErr = nil
	api.fetchErr = nil
	api.fields = map[string]any{"status": "active"}
	s.ResyncOnce(context.Background())

	if !s.Confirmed("sessions", "s1") {
		t.Fatalf("resync should confirm the retried write")
	}
	res, _ := s.Fetch(context.Background(), "sessions", "s1", true)
	if res.Fields["status"] != "cancelled" {
		t.Fatalf("retried write lost: %+v", res.Fields)
	}
}

func TestResyncRevertsToServerWhenWriteKeepsFailing(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, updateErr: &NetworkError{Op: "patch", Err: errors.New("rejected")}, fetchErr: &NetworkError{Op: "get", Err: errors.New("down")}}
	s := newTestSyncer(t, []Strategy{api}, []Strategy{api})
	s.Track("sessions", "s1")

	if _, err := s.Update(context.Background(), "sessions", "s1", map[string]any{"status": "cancelled"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// fetch recovers but writes stay down: server value is authoritative
	api.fetchErr = nil
	api.fields = map[string]any{"status": "active", "updated_at": float64(time.Now().UnixMilli())}
	s.ResyncOnce(context.Background())

	res, err := s.Fetch(context.Background(), "sessions", "s1", true)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Fields["status"] != "active" {
		t.Fatalf("expected revert to server value: %+v", res.Fields)
	}
	if !s.Confirmed("sessions", "s1") {
		t.Fatalf("reverted state should be confirmed")
	}
}

func TestStartResyncStops(t *testing.T) {
	s := newTestSyncer(t, nil, nil)
	stop := s.StartResync(5 * time.Millisecond)
	time.Sleep(15 * time.Millisecond)
	stop()
	stop() // second call is safe
}

func TestUntrackRemovesEntity(t *testing.T) {
	api := &fakeStrategy{provenance: ProvenanceServer, fields: map[string]any{"status": "active"}}
	s := newTestSyncer(t, []Strategy{api}, nil)
	s.Track("sessions", "s1")
	s.Untrack("sessions", "s1")
	s.ResyncOnce(context.Background())
	if _, ok := s.cache.Get("sessions", "s1"); ok {
		t.Fatalf("untracked entity should not be resynced")
	}
}
