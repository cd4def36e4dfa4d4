package syncer

import (
	"context"
	"errors"
	"fmt"
)

// Provenance tags where a resolved value came from, so callers can tell
// authoritative data from degraded fallbacks.
type Provenance string

const (
	ProvenanceServer     Provenance = "server"
	ProvenanceStore      Provenance = "store"
	ProvenanceToken      Provenance = "token"
	ProvenanceCache      Provenance = "cache"
	ProvenanceOptimistic Provenance = "optimistic"
)

// Strategy is one step of the resolution chain. Fallback handling is an
// ordered list of these rather than nested error branches.
type Strategy interface {
	Provenance() Provenance
	Fetch(ctx context.Context, collection, id string) (map[string]any, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (map[string]any, error)
}

// ErrNotFound reports an entity absent from every reachable layer.
var ErrNotFound = errors.New("entity not found")

// ErrNotConfigured reports a layer that is unreachable by configuration
// rather than by transient failure.
var ErrNotConfigured = errors.New("backend not configured")

// ErrReadOnly is returned by fetch-only strategies asked to write.
var ErrReadOnly = errors.New("strategy is read-only")

// NetworkError wraps transient transport failures so the chain can keep
// degrading instead of aborting.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Adapter exposes one entity collection of the relational store to the
// sync chain. Domain packages implement it over their own tables.
type Adapter interface {
	Collection() string
	Fetch(ctx context.Context, id string) (map[string]any, error)
	Update(ctx context.Context, id string, fields map[string]any) (map[string]any, error)
}

// StoreStrategy resolves entities against the relational store directly,
// bypassing the primary API.
type StoreStrategy struct {
	adapters map[string]Adapter
}

func NewStoreStrategy(adapters ...Adapter) *StoreStrategy {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Collection()] = a
	}
	return &StoreStrategy{adapters: m}
}

func (s *StoreStrategy) Provenance() Provenance {
	return ProvenanceStore
}

func (s *StoreStrategy) Fetch(ctx context.Context, collection, id string) (map[string]any, error) {
	adapter, ok := s.adapters[collection]
	if !ok {
		return nil, ErrNotConfigured
	}
	return adapter.Fetch(ctx, id)
}

func (s *StoreStrategy) Update(ctx context.Context, collection, id string, fields map[string]any) (map[string]any, error) {
	adapter, ok := s.adapters[collection]
	if !ok {
		return nil, ErrNotConfigured
	}
	return adapter.Update(ctx, id, fields)
}

// TokenStrategy derives a minimal entity from the caller's authenticated
// token claims. Fetch-only, and only for the collections the claims can
// describe (users).
type TokenStrategy struct {
	claims func(id string) map[string]any
}

func NewTokenStrategy(claims func(id string) map[string]any) *TokenStrategy {
	return &TokenStrategy{claims: claims}
}

func (s *TokenStrategy) Provenance() Provenance {
	return ProvenanceToken
}

func (s *TokenStrategy) Fetch(_ context.Context, collection, id string) (map[string]any, error) {
	if s.claims == nil || collection != "users" {
		return nil, ErrNotFound
	}
	fields := s.claims(id)
	if fields == nil {
		return nil, ErrNotFound
	}
	return fields, nil
}

func (s *TokenStrategy) Update(context.Context, string, string, map[string]any) (map[string]any, error) {
	return nil, ErrReadOnly
}
