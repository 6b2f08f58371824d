// Package sqlite stores ledger snapshots in a single SQLite table, one row
// per snapshot key.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"lifeledger/internal/core"
	"lifeledger/internal/storage"

	_ "modernc.org/sqlite"
)

const (
	selectSnapshot = `SELECT data, version FROM snapshots WHERE key = ?`
	insertSnapshot = `INSERT INTO snapshots (key, data, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`
	updateSnapshot = `UPDATE snapshots SET data = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?`
)

// Repository is a storage.SnapshotStore backed by SQLite.
type Repository struct {
	db  *sql.DB
	key string
	now func() time.Time
}

// NewRepository opens (creating if needed) the database at dbPath, applies
// migrations and returns a store for the snapshot identified by key.
func NewRepository(dbPath, key string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if key == "" {
		key = "default"
	}
	return &Repository{db: db, key: key, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Load(ctx context.Context) (core.Snapshot, int64, error) {
	var (
		data    string
		version int64
	)
	err := r.db.QueryRowContext(ctx, selectSnapshot, r.key).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, 0, storage.ErrNoSnapshot
	}
	if err != nil {
		return core.Snapshot{}, 0, fmt.Errorf("select snapshot %q: %w", r.key, err)
	}

	snap, err := storage.Decode([]byte(data))
	if err != nil {
		return core.Snapshot{}, 0, fmt.Errorf("snapshot %q: %w", r.key, err)
	}
	return snap, version, nil
}

func (r *Repository) Save(ctx context.Context, snap core.Snapshot, expected int64) (int64, error) {
	data, err := storage.Encode(snap)
	if err != nil {
		return 0, err
	}
	now := r.now().UTC()

	if expected == 0 {
		if _, err := r.db.ExecContext(ctx, insertSnapshot, r.key, string(data), now, now); err != nil {
			// A row already exists: someone saved before us.
			if r.exists(ctx) {
				return 0, fmt.Errorf("insert snapshot %q: %w", r.key, storage.ErrVersionConflict)
			}
			return 0, fmt.Errorf("insert snapshot %q: %w", r.key, err)
		}
		slog.DebugContext(ctx, "Snapshot created", "key", r.key, "bytes", len(data))
		return 1, nil
	}

	res, err := r.db.ExecContext(ctx, updateSnapshot, string(data), now, r.key, expected)
	if err != nil {
		return 0, fmt.Errorf("update snapshot %q: %w", r.key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update snapshot %q: %w", r.key, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("update snapshot %q at version %d: %w", r.key, expected, storage.ErrVersionConflict)
	}

	slog.DebugContext(ctx, "Snapshot saved", "key", r.key, "version", expected+1, "bytes", len(data))
	return expected + 1, nil
}

func (r *Repository) exists(ctx context.Context) bool {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM snapshots WHERE key = ?`, r.key).Scan(&one)
	return err == nil
}
