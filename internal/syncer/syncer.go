// Package syncer reconciles the local snapshot cache against the primary
// API and the relational store. Reads and writes walk an ordered strategy
// chain and always produce some value, annotated with provenance;
// transient failures degrade the path instead of aborting it.
package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"backend-carewatch/internal/cache"
	"backend-carewatch/internal/shared/instant"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of a fetch or update: the best available fields
// plus where they came from and whether the backend has confirmed them.
type Result struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	Provenance Provenance     `json:"provenance"`
	Confirmed  bool           `json:"confirmed"`
}

type Syncer struct {
	cache *cache.Store
	read  []Strategy
	write []Strategy
	log   *logrus.Logger

	mu      sync.Mutex
	tracked map[string]struct{}
	pending map[string]map[string]any
}

// New builds a coordinator over the given strategy chains. The read chain
// is walked in order (API first, then direct store, then token-derived
// data); the write chain likewise. The cache is always the final read
// fallback and receives every successful resolution.
func New(store *cache.Store, log *logrus.Logger, read, write []Strategy) *Syncer {
	if log == nil {
		log = logrus.New()
	}
	return &Syncer{
		cache:   store,
		read:    read,
		write:   write,
		log:     log,
		tracked: map[string]struct{}{},
		pending: map[string]map[string]any{},
	}
}

func trackKey(collection, id string) string {
	return collection + "/" + id
}

// Fetch resolves an entity. With instant=true a cached value is returned
// immediately and a background refresh is scheduled; otherwise the chain
// is walked synchronously, falling back to the cache when every remote
// layer fails.
func (s *Syncer) Fetch(ctx context.Context, collection, id string, instantRead bool) (Result, error) {
	if instantRead {
		if snap, ok := s.cache.Get(collection, id); ok {
			go func() {
				refreshCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				_, _ = s.fetchRemote(refreshCtx, collection, id)
			}()
			return Result{
				Collection: collection,
				ID:         id,
				Fields:     snap.Fields,
				Provenance: ProvenanceCache,
				Confirmed:  !snap.Unconfirmed,
			}, nil
		}
	}

	if res, err := s.fetchRemote(ctx, collection, id); err == nil {
		return res, nil
	} else if errors.Is(err, ErrNotFound) {
		if _, ok := s.cache.Get(collection, id); !ok {
			return Result{}, ErrNotFound
		}
	}

	if snap, ok := s.cache.Get(collection, id); ok {
		return Result{
			Collection: collection,
			ID:         id,
			Fields:     snap.Fields,
			Provenance: ProvenanceCache,
			Confirmed:  !snap.Unconfirmed,
		}, nil
	}
	return Result{}, ErrNotFound
}

func (s *Syncer) fetchRemote(ctx context.Context, collection, id string) (Result, error) {
	var lastErr error = ErrNotFound
	for _, strat := range s.read {
		fields, err := strat.Fetch(ctx, collection, id)
		if err != nil {
			if !errors.Is(err, ErrNotConfigured) {
				s.log.WithFields(logrus.Fields{
					"collection": collection,
					"id":         id,
					"layer":      strat.Provenance(),
				}).WithError(err).Debug("fetch layer failed")
			}
			lastErr = err
			continue
		}

		snap := s.confirmSnapshot(collection, id, fields)
		return Result{
			Collection: collection,
			ID:         id,
			Fields:     snap.Fields,
			Provenance: strat.Provenance(),
			Confirmed:  true,
		}, nil
	}
	return Result{}, lastErr
}

// Update applies a partial update optimistically to the cache, then walks
// the write chain. Absent fields are never touched. When every remote
// write fails the cached value is kept but flagged unconfirmed; callers
// can observe that through Confirmed and the returned Result.
func (s *Syncer) Update(ctx context.Context, collection, id string, fields map[string]any) (Result, error) {
	now := time.Now().UnixMilli()
	s.cache.Put(cache.Snapshot{
		Collection:  collection,
		ID:          id,
		Fields:      fields,
		UpdatedAt:   now,
		SyncedAt:    now,
		Unconfirmed: true,
	})
	s.rememberPending(collection, id, fields)

	for _, strat := range s.write {
		updated, err := strat.Update(ctx, collection, id, fields)
		if err != nil {
			if !errors.Is(err, ErrNotConfigured) && !errors.Is(err, ErrReadOnly) {
				s.log.WithFields(logrus.Fields{
					"collection": collection,
					"id":         id,
					"layer":      strat.Provenance(),
				}).WithError(err).Warn("write layer failed, degrading")
			}
			continue
		}

		snap := s.confirmSnapshot(collection, id, updated)
		s.forgetPending(collection, id)
		return Result{
			Collection: collection,
			ID:         id,
			Fields:     snap.Fields,
			Provenance: strat.Provenance(),
			Confirmed:  true,
		}, nil
	}

	s.log.WithFields(logrus.Fields{
		"collection": collection,
		"id":         id,
	}).Warn("update unconfirmed: every write layer failed")

	snap, _ := s.cache.Get(collection, id)
	return Result{
		Collection: collection,
		ID:         id,
		Fields:     snap.Fields,
		Provenance: ProvenanceOptimistic,
		Confirmed:  false,
	}, nil
}

func (s *Syncer) confirmSnapshot(collection, id string, fields map[string]any) cache.Snapshot {
	return s.cache.Put(cache.Snapshot{
		Collection: collection,
		ID:         id,
		Fields:     fields,
		UpdatedAt:  updatedAtMillis(fields),
		SyncedAt:   time.Now().UnixMilli(),
	})
}

// Confirmed reports whether the cached value for an entity has been
// acknowledged by a remote layer. Unknown entities count as confirmed.
func (s *Syncer) Confirmed(collection, id string) bool {
	snap, ok := s.cache.Get(collection, id)
	if !ok {
		return true
	}
	return !snap.Unconfirmed
}

// Track marks an entity as live so background resync keeps it fresh.
func (s *Syncer) Track(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[trackKey(collection, id)] = struct{}{}
}

// Untrack stops background resync for an entity.
func (s *Syncer) Untrack(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, trackKey(collection, id))
}

func (s *Syncer) rememberPending(collection, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := trackKey(collection, id)
	merged := s.pending[key]
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range fields {
		merged[k] = v
	}
	s.pending[key] = merged
}

func (s *Syncer) forgetPending(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, trackKey(collection, id))
}

func (s *Syncer) pendingFields(collection, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[trackKey(collection, id)]
}

// StartResync runs the periodic consistency backstop: every interval each
// tracked entity is re-fetched and reconciled, and unconfirmed optimistic
// writes are retried first. The returned stop function cancels the loop;
// the ticker never fires after stop returns.
func (s *Syncer) StartResync(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.ResyncOnce(context.Background())
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ResyncOnce reconciles every tracked entity against the remote layers.
// The server copy is authoritative for the fields it returns; optimistic
// data survives only while it is strictly newer than anything confirmed.
func (s *Syncer) ResyncOnce(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.tracked))
	for k := range s.tracked {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, key := range keys {
		collection, id, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		s.resyncEntity(ctx, collection, id)
	}
}

func (s *Syncer) resyncEntity(ctx context.Context, collection, id string) {
	if fields := s.pendingFields(collection, id); fields != nil {
		// retry the optimistic write before reconciling
		for _, strat := range s.write {
			if updated, err := strat.Update(ctx, collection, id, fields); err == nil {
				s.confirmSnapshot(collection, id, updated)
				s.forgetPending(collection, id)
				return
			}
		}
	}

	for _, strat := range s.read {
		fields, err := strat.Fetch(ctx, collection, id)
		if err != nil {
			continue
		}
		snap, ok := s.cache.Get(collection, id)
		if ok && snap.Unconfirmed {
			// server is authoritative: the retried write above did not
			// land, so the optimistic value is reverted
			s.forgetPending(collection, id)
			s.cache.Replace(cache.Snapshot{
				Collection: collection,
				ID:         id,
				Fields:     fields,
				UpdatedAt:  updatedAtMillis(fields),
				SyncedAt:   time.Now().UnixMilli(),
			})
			return
		}
		s.confirmSnapshot(collection, id, fields)
		return
	}
}

func updatedAtMillis(fields map[string]any) int64 {
	if fields == nil {
		return 0
	}
	for _, key := range []string{"updated_at", "updatedAt"} {
		if v, ok := fields[key]; ok {
			if t, err := instant.Parse(v); err == nil && !t.IsZero() {
				return t.UnixMilli()
			}
		}
	}
	return 0
}
