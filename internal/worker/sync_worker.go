package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lifeledger/internal/amqp"
	"lifeledger/internal/core"
	"lifeledger/internal/log"
	"lifeledger/internal/sheets"
	"lifeledger/internal/storage"
)

// SnapshotLoader reads the current ledger snapshot. storage.SnapshotStore
// satisfies it.
type SnapshotLoader interface {
	Load(ctx context.Context) (core.Snapshot, int64, error)
}

// SyncWorker applies ledger change messages to a transaction mirror.
type SyncWorker struct {
	mirror    sheets.TransactionMirror
	snapshots SnapshotLoader
}

type Option func(*SyncWorker)

// WithSnapshots lets the worker rebuild the mirror when a whole snapshot is
// imported. Without it import messages are only logged.
func WithSnapshots(l SnapshotLoader) Option {
	return func(w *SyncWorker) { w.snapshots = l }
}

func NewSyncWorker(mirror sheets.TransactionMirror, opts ...Option) *SyncWorker {
	w := &SyncWorker{mirror: mirror}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleChange processes a single change message from AMQP. Transaction
// changes touch one row and an imported snapshot triggers a full resync.
// Other kinds are acknowledged without work. A returned error requeues the
// message.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	switch msg.Kind {
	case core.TransactionCreated, core.TransactionUpdated:
		if msg.Transaction == nil {
			slog.WarnContext(ctx, "Transaction change without payload, skipping",
				"kind", msg.Kind,
				"id", msg.EntityID,
				"version", msg.Version)
			return nil
		}
		if err := w.mirror.Upsert(ctx, *msg.Transaction); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", msg.Transaction.ID, err)
		}
		tx := msg.Transaction
		fields := log.NewFields().
			WithTransaction(tx.ID, tx.AccountID, tx.CategoryID, tx.Amount.String()).
			WithOperation(log.OpSync).
			WithComponent(log.ComponentWorker)
		slog.InfoContext(ctx, "Mirrored transaction", append(fields.ToSlice(), log.FieldChangeKind, msg.Kind, log.FieldVersion, msg.Version)...)

	case core.TransactionDeleted:
		id := msg.EntityID
		if id == "" && msg.Transaction != nil {
			id = msg.Transaction.ID
		}
		if id == "" {
			slog.WarnContext(ctx, "Delete change without id, skipping", "version", msg.Version)
			return nil
		}
		if err := w.mirror.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove transaction %s: %w", id, err)
		}
		slog.InfoContext(ctx, "Removed mirrored transaction",
			"id", id,
			"version", msg.Version)

	case core.SnapshotImported:
		if w.snapshots == nil {
			slog.WarnContext(ctx, "Snapshot imported but no snapshot source configured, mirror may be stale",
				"version", msg.Version)
			return nil
		}
		snap, _, err := w.snapshots.Load(ctx)
		if errors.Is(err, storage.ErrNoSnapshot) {
			slog.WarnContext(ctx, "Snapshot imported but store is empty, skipping resync",
				"version", msg.Version)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load imported snapshot: %w", err)
		}
		if err := w.Resync(ctx, snap); err != nil {
			return fmt.Errorf("resync after import: %w", err)
		}

	default:
		slog.DebugContext(ctx, "Ignoring change",
			"kind", msg.Kind,
			"entity", msg.Entity,
			"version", msg.Version)
	}
	return nil
}

// Resync makes the mirror match snap: every transaction is upserted and rows
// for ids no longer in the ledger are removed. It backs up the message flow
// after worker downtime, a lost queue or an import.
func (w *SyncWorker) Resync(ctx context.Context, snap core.Snapshot) error {
	mirrored, err := w.mirror.IDs(ctx)
	if err != nil {
		return fmt.Errorf("list mirrored ids: %w", err)
	}

	live := make(map[string]struct{}, len(snap.Transactions))
	synced := 0
	for _, tx := range snap.Transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
		}
		live[tx.ID] = struct{}{}
		synced++
	}

	removed := 0
	for _, id := range mirrored {
		if _, ok := live[id]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirror.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove stale transaction %s: %w", id, err)
		}
		removed++
	}
	slog.InfoContext(ctx, "Resync completed", "synced", synced, "removed", removed)
	return nil
}
