// Package cache is the local durable snapshot store backing the sync
// layer. Entities are kept as field maps keyed by collection and id so a
// read can be served instantly while the backend is unreachable.
package cache

import (
	"encoding/json"

	badger "github.com/dgraph-io/badger/v4"
)

// Snapshot is one cached entity with sync metadata.
type Snapshot struct {
	Collection  string         `json:"collection"`
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	UpdatedAt   int64          `json:"updated_at"`
	SyncedAt    int64          `json:"synced_at"`
	Unconfirmed bool           `json:"unconfirmed"`
}

type Store struct {
	db *badger.DB
}

// Open opens the cache at dir. An empty dir opens an in-memory store,
// which tests use.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

// Get returns the cached snapshot for (collection, id). A missing key is
// reported through the bool, never as an error.
func (s *Store) Get(collection, id string) (Snapshot, bool) {
	var snap Snapshot
	found := false
	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return nil
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &snap); err != nil {
				return nil
			}
			found = true
			return nil
		})
	})
	return snap, found
}

// GetAll returns every cached snapshot in a collection.
func (s *Store) GetAll(collection string) []Snapshot {
	prefix := []byte(collection + "/")
	var out []Snapshot
	_ = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			_ = it.Item().Value(func(val []byte) error {
				var snap Snapshot
				if err := json.Unmarshal(val, &snap); err == nil {
					out = append(out, snap)
				}
				return nil
			})
		}
		return nil
	})
	return out
}

// Put upserts a snapshot, merging its fields onto any existing entry
// rather than replacing wholesale. A confirmed put is refused when the
// existing entry carries confirmed data with a newer entity timestamp.
func (s *Store) Put(snap Snapshot) Snapshot {
	existing, ok := s.Get(snap.Collection, snap.ID)
	if ok {
		if !existing.Unconfirmed && !snap.Unconfirmed &&
			existing.UpdatedAt > snap.UpdatedAt && snap.UpdatedAt != 0 {
			return existing
		}
		merged := make(map[string]any, len(existing.Fields)+len(snap.Fields))
		for k, v := range existing.Fields {
			merged[k] = v
		}
		for k, v := range snap.Fields {
			merged[k] = v
		}
		snap.Fields = merged
		if snap.UpdatedAt == 0 {
			snap.UpdatedAt = existing.UpdatedAt
		}
	}

	buf, err := json.Marshal(snap)
	if err != nil {
		return snap
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(snap.Collection, snap.ID), buf)
	})
	return snap
}

// Replace stores a snapshot verbatim, discarding any previously merged
// fields. Background resync uses it when the server copy is authoritative.
func (s *Store) Replace(snap Snapshot) {
	buf, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(snap.Collection, snap.ID), buf)
	})
}

// Remove deletes a cached snapshot. Removing an absent key is a no-op.
func (s *Store) Remove(collection, id string) {
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(collection, id))
	})
}
