// Package file stores a ledger snapshot as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lifeledger/internal/core"
	"lifeledger/internal/storage"
)

type document struct {
	Version  int64           `json:"version"`
	SavedAt  time.Time       `json:"savedAt"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Store keeps the snapshot in one file, replaced atomically on every save.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore returns a store writing to path. The parent directory is created
// if missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{path: path, now: time.Now}, nil
}

func (s *Store) Load(ctx context.Context) (core.Snapshot, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return core.Snapshot{}, 0, err
	}
	snap, err := storage.Decode(doc.Snapshot)
	if err != nil {
		return core.Snapshot{}, 0, fmt.Errorf("%s: %w", s.path, err)
	}
	return snap, doc.Version, nil
}

func (s *Store) Save(ctx context.Context, snap core.Snapshot, expected int64) (int64, error) {
	data, err := storage.Encode(snap)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	doc, err := s.read()
	switch {
	case err == nil:
		current = doc.Version
	case errors.Is(err, storage.ErrNoSnapshot):
	default:
		return 0, err
	}
	if current != expected {
		return 0, fmt.Errorf("expected version %d, have %d: %w", expected, current, storage.ErrVersionConflict)
	}

	next := document{Version: current + 1, SavedAt: s.now().UTC(), Snapshot: data}
	out, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode snapshot document: %w", err)
	}
	if err := writeAtomic(s.path, out); err != nil {
		return 0, err
	}
	return next.Version, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) read() (document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return document{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
