// Package memory provides an in-process SnapshotStore.
//
// Snapshots are kept encoded so callers never share memory with the store,
// matching what a real backend would return.
package memory

import (
	"context"
	"fmt"
	"sync"

	"lifeledger/internal/core"
	"lifeledger/internal/storage"
)

// Store is a thread-safe in-memory snapshot store.
type Store struct {
	mu      sync.RWMutex
	data    []byte
	version int64

	// saves counts successful writes; used by tests.
	saves int
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// NewStoreWith returns a store pre-populated with snap at version 1.
func NewStoreWith(snap core.Snapshot) (*Store, error) {
	data, err := storage.Encode(snap)
	if err != nil {
		return nil, err
	}
	return &Store{data: data, version: 1}, nil
}

func (s *Store) Load(ctx context.Context) (core.Snapshot, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return core.Snapshot{}, 0, storage.ErrNoSnapshot
	}
	snap, err := storage.Decode(s.data)
	if err != nil {
		return core.Snapshot{}, 0, err
	}
	return snap, s.version, nil
}

func (s *Store) Save(ctx context.Context, snap core.Snapshot, expected int64) (int64, error) {
	data, err := storage.Encode(snap)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != expected {
		return 0, fmt.Errorf("expected version %d, have %d: %w", expected, s.version, storage.ErrVersionConflict)
	}
	s.data = data
	s.version++
	s.saves++
	return s.version, nil
}

// Bump advances the stored version without changing the data, simulating a
// concurrent writer.
func (s *Store) Bump() {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()
}

// Saves returns the number of successful writes.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

func (s *Store) Close() error { return nil }
