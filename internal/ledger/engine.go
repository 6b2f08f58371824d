// Package ledger owns the consistency rules between accounts, transactions,
// goals and subscriptions.
//
// An Engine holds the current snapshot and its persisted version. Every
// mutation works on a private copy, persists it with the version it was
// derived from and only then replaces the in-memory state and notifies
// listeners. A failed validation or save leaves the current snapshot
// untouched.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifeledger/internal/core"
	"lifeledger/internal/log"
	"lifeledger/internal/storage"
)

// Notifier receives the changes of every committed mutation.
type Notifier interface {
	PublishChanges(ctx context.Context, changes []core.Change) error
}

// Listener is called after a mutation is committed.
type Listener func(ctx context.Context, version int64, changes []core.Change)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for postings and contribution dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the generator used for new record identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithNotifier sets the change publisher.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithStrictFunds rejects manual expenses larger than the account balance.
func WithStrictFunds(strict bool) Option {
	return func(e *Engine) { e.strictFunds = strict }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the single writer of a ledger snapshot.
type Engine struct {
	mu      sync.Mutex
	store   storage.SnapshotStore
	snap    core.Snapshot
	version int64
	loaded  bool

	lmu          sync.RWMutex
	listeners    map[int]Listener
	nextListener int

	notifier    Notifier
	now         func() time.Time
	newID       func() string
	strictFunds bool
	logger      *log.Logger
	audit       *log.StructuredLogger
}

// New returns an engine persisting to store. Call Load before any mutation.
func New(store storage.SnapshotStore, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		listeners: make(map[int]Listener),
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.audit = log.NewStructuredLogger(e.logger)
	return e
}

// Load reads the stored snapshot, seeding a fresh one when the store is
// empty, and posts every subscription charge that has become due.
func (e *Engine) Load(ctx context.Context) error {
	snap, version, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		snap, version = core.NewSnapshot(), 0
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	}
	snap.Normalize()

	next, posted := PostDueSubscriptions(snap, e.now(), e.newID)
	changes := postingChanges(posted)

	if version == 0 || len(posted) > 0 {
		if version, err = e.store.Save(ctx, next, version); err != nil {
			return fmt.Errorf("persist loaded snapshot: %w", err)
		}
	}

	e.mu.Lock()
	e.snap = next
	e.version = version
	e.loaded = true
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "Ledger loaded",
		"version", version,
		"accounts", len(next.Accounts),
		"transactions", len(next.Transactions),
		"posted", len(posted))

	if len(changes) > 0 {
		e.publish(ctx, version, changes)
	}
	return nil
}

// Snapshot returns a deep copy of the current snapshot.
func (e *Engine) Snapshot() core.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// ExportData returns the current snapshot in interchange form.
func (e *Engine) ExportData() core.Snapshot { return e.Snapshot() }

// Current returns a deep copy of the current snapshot together with its version.
func (e *Engine) Current() (core.Snapshot, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone(), e.version
}

// Version returns the persisted version of the current snapshot.
func (e *Engine) Version() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Subscribe registers fn for committed changes. The returned func removes it.
func (e *Engine) Subscribe(fn Listener) func() {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

// ImportData replaces the whole snapshot after normalizing and validating it.
func (e *Engine) ImportData(ctx context.Context, snap core.Snapshot) error {
	snap = snap.Clone()
	snap.Normalize()
	if err := snap.Validate(); err != nil {
		return invalid(core.EntitySnapshot, err)
	}
	return e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		*s = snap
		return []core.Change{{Kind: core.SnapshotImported, Entity: core.EntitySnapshot}}, nil
	})
}

// PostDueSubscriptions posts every due subscription charge and returns the
// created transactions.
func (e *Engine) PostDueSubscriptions(ctx context.Context) ([]core.Transaction, error) {
	var posted []core.Transaction
	err := e.mutate(ctx, func(s *core.Snapshot) ([]core.Change, error) {
		var next core.Snapshot
		next, posted = PostDueSubscriptions(*s, e.now(), e.newID)
		*s = next
		return postingChanges(posted), nil
	})
	if err != nil {
		return nil, err
	}
	if len(posted) > 0 {
		e.logger.InfoContext(ctx, "Posted due subscriptions", "count", len(posted))
	}
	return posted, nil
}

// mutate applies fn to a copy of the current snapshot and commits it. fn
// returning no changes means nothing to persist. When another writer moved
// the store ahead, the engine reloads and re-applies fn once.
func (e *Engine) mutate(ctx context.Context, fn func(s *core.Snapshot) ([]core.Change, error)) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return ErrNotLoaded
	}

	version, changes, err := e.commit(ctx, fn)
	if errors.Is(err, storage.ErrVersionConflict) {
		e.logger.WarnContext(ctx, "Snapshot changed underneath, reloading",
			"version", e.version)
		if rerr := e.reload(ctx); rerr != nil {
			e.mu.Unlock()
			return fmt.Errorf("reload after conflict: %w", rerr)
		}
		version, changes, err = e.commit(ctx, fn)
	}
	e.mu.Unlock()
	if err != nil || len(changes) == 0 {
		return err
	}

	e.publish(ctx, version, changes)
	return nil
}

// commit runs fn against a clone and saves the result. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, fn func(s *core.Snapshot) ([]core.Change, error)) (int64, []core.Change, error) {
	work := e.snap.Clone()
	changes, err := fn(&work)
	if err != nil || len(changes) == 0 {
		return 0, nil, err
	}

	// Detach from slices and pointers supplied by the caller.
	work = work.Clone()

	version, err := e.store.Save(ctx, work, e.version)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to persist snapshot",
			log.FieldError, err,
			"version", e.version)
		return 0, nil, fmt.Errorf("persist snapshot: %w", err)
	}
	e.snap = work
	e.version = version
	return version, changes, nil
}

// reload replaces the in-memory snapshot with the stored one. Callers hold
// e.mu.
func (e *Engine) reload(ctx context.Context) error {
	snap, version, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	snap.Normalize()
	e.snap = snap
	e.version = version
	return nil
}

func (e *Engine) publish(ctx context.Context, version int64, changes []core.Change) {
	at := e.now().UTC()
	for i := range changes {
		changes[i].Version = version
		changes[i].At = at
		e.audit.LogChange(ctx, string(changes[i].Kind), changes[i].Entity, changes[i].EntityID, version)
	}

	if e.notifier != nil {
		if err := e.notifier.PublishChanges(ctx, changes); err != nil {
			// The snapshot is already persisted; the mirror catches up later.
			e.logger.ErrorContext(ctx, "Failed to publish changes",
				log.FieldError, err,
				"version", version,
				"changes", len(changes))
		}
	}

	e.lmu.RLock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.lmu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, version, changes)
	}
}

func postingChanges(posted []core.Transaction) []core.Change {
	changes := make([]core.Change, 0, len(posted))
	for i := range posted {
		tx := posted[i]
		changes = append(changes, core.Change{
			Kind:        core.TransactionCreated,
			Entity:      core.EntityTransaction,
			EntityID:    tx.ID,
			Transaction: &tx,
		})
	}
	return changes
}
