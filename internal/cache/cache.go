// Package cache provides the in-process caches used for report read models
// and spreadsheet row lookups, plus a manager that expires them periodically.
package cache

import (
	"sync"
	"time"

	"lifeledger/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeleteFunc removes every key for which drop returns true.
	DeleteFunc(drop func(key string) bool) int
	Purge()
	Size() int
	Stats() Stats
}

// Cleaner is a cache whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
	Stats() Stats
}

// Manager sweeps expired entries of its registered caches on an interval.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *log.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		logger: log.Default(log.ComponentCache),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Register adds a named cache. Registering a name twice replaces the cache.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup starts the sweep loop. Later calls are no-ops.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.startOnce.Do(func() { go m.run(interval) })
}

func (m *Manager) run(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Sweep removes expired entries from every cache and returns how many
// entries were dropped per cache name.
func (m *Manager) Sweep() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]int, len(m.caches))
	for name, c := range m.caches {
		n := c.CleanExpired()
		removed[name] = n
		if n > 0 {
			st := c.Stats()
			m.logger.Debug("Expired cache entries removed",
				"cache", name,
				"count", n,
				"hits", st.Hits,
				"misses", st.Misses)
		}
	}
	return removed
}

// Stop ends the sweep loop and waits for it. Safe to call more than once,
// and before StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		started := true
		m.startOnce.Do(func() { started = false })
		if started {
			<-m.done
		}
	})
}
