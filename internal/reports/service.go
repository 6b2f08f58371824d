package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"lifeledger/internal/cache"
	"lifeledger/internal/core"
	"lifeledger/internal/log"
)

// Source provides the current snapshot. Version must be cheap; Current may
// copy the whole snapshot.
type Source interface {
	Version() int64
	Current() (core.Snapshot, int64)
}

// Service caches read models per snapshot version. Concurrent requests for
// the same uncached report share one computation.
type Service struct {
	src    Source
	cache  *cache.LRUCache[any]
	group  singleflight.Group
	logger *log.Logger
}

// NewService returns a service holding at most size reports for ttl each.
func NewService(src Source, size int, ttl time.Duration) *Service {
	return &Service{
		src:    src,
		cache:  cache.NewLRUCache[any](size, ttl),
		logger: log.Default(log.ComponentReports),
	}
}

// Cache exposes the underlying cache for lifecycle management.
func (s *Service) Cache() *cache.LRUCache[any] { return s.cache }

// Invalidate drops reports computed for versions older than version. Its
// signature matches ledger.Listener so it can be subscribed directly.
func (s *Service) Invalidate(ctx context.Context, version int64, _ []core.Change) {
	current := versionPrefix(version)
	dropped := s.cache.DeleteFunc(func(key string) bool { return !strings.HasPrefix(key, current) })
	s.logger.DebugContext(ctx, "Stale reports dropped", log.FieldVersion, version, "count", dropped)
}

func versionPrefix(version int64) string { return fmt.Sprintf("v%d:", version) }

func (s *Service) MonthOverview(year int, month time.Month) core.MonthOverview {
	return cached(s, fmt.Sprintf("month:%04d-%02d", year, month), func(snap core.Snapshot) core.MonthOverview {
		return MonthOverview(snap, year, month)
	})
}

func (s *Service) BudgetUsage(at time.Time) []core.BudgetUsage {
	return cached(s, "budgets:"+at.Format("2006-01-02"), func(snap core.Snapshot) []core.BudgetUsage {
		return BudgetUsage(snap, at)
	})
}

func (s *Service) NetWorth() core.NetWorth {
	return cached(s, "networth", NetWorth)
}

func cached[T any](s *Service, name string, compute func(core.Snapshot) T) T {
	key := versionPrefix(s.src.Version()) + name
	if v, ok := s.cache.Get(key); ok {
		return v.(T)
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		snap, version := s.src.Current()
		result := compute(snap)
		// Store under the version actually read; a newer one may have landed.
		s.cache.Set(versionPrefix(version)+name, result)
		return result, nil
	})
	return v.(T)
}
