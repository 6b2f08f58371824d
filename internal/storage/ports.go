// Package storage defines the persistence contract for ledger snapshots.
//
// A store keeps exactly one serialized core.Snapshot per key together with a
// monotonically increasing version. Writers pass the version they read; a
// mismatch means another writer got there first and the save is rejected.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lifeledger/internal/core"
)

var (
	// ErrNoSnapshot is returned by Load when nothing has been saved yet.
	ErrNoSnapshot = errors.New("no snapshot stored")
	// ErrVersionConflict is returned by Save when the stored version differs
	// from the expected one.
	ErrVersionConflict = errors.New("snapshot version conflict")
)

// SnapshotStore loads and saves whole snapshots with an optimistic version check.
type SnapshotStore interface {
	// Load returns the stored snapshot and its version.
	Load(ctx context.Context) (core.Snapshot, int64, error)
	// Save stores snap if the current version equals expected and returns the
	// new version. expected is 0 when nothing has been stored yet.
	Save(ctx context.Context, snap core.Snapshot, expected int64) (int64, error)
	Close() error
}

// Encode serializes a snapshot into the interchange format shared by every
// store and by import/export.
func Encode(snap core.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses the interchange format and normalizes the result.
func Decode(data []byte) (core.Snapshot, error) {
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}
