// Package cache persists per-(source, day) metric snapshots. Entries are
// never evicted: the access pattern is bounded by sources × days, and a
// re-fetch of a historical day always rewrites the same fact, so last-writer
// -wins upserts are safe to race.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcamposv/metrica/internal/models"
)

// Clock is injectable so TTL behavior is testable.
type Clock func() time.Time

// Store is the key-value cache sitting between the source clients and the
// network. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns all cached entries for the tag whose dates fall in
	// [from, to], ascending, possibly stale. Freshness is judged by the
	// caller against the source's TTL.
	Get(ctx context.Context, sourceTag string, from, to time.Time) ([]models.CacheEntry, error)
	// Put upserts one day's metric. Idempotent.
	Put(ctx context.Context, sourceTag string, m models.DailyMetric) error
}

// MemoryStore keeps entries in a mutex-guarded map. Used for tests and for
// zero-config runs with no cache path.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	now     Clock
}

func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{entries: make(map[string]models.CacheEntry), now: now}
}

func entryKey(tag string, day time.Time) string {
	return tag + "|" + day.Format(models.DateFormat)
}

func (s *MemoryStore) Put(_ context.Context, tag string, m models.DailyMetric) error {
	day := models.Day(m.Date)
	m.Date = day
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entryKey(tag, day)] = models.CacheEntry{
		SourceTag: tag,
		Metric:    m,
		UpdatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tag string, from, to time.Time) ([]models.CacheEntry, error) {
	from, to = models.Day(from), models.Day(to)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CacheEntry
	for _, e := range s.entries {
		if e.SourceTag != tag {
			continue
		}
		if e.Metric.Date.Before(from) || e.Metric.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	// orden determinista
	sort.Slice(out, func(i, j int) bool { return out[i].Metric.Date.Before(out[j].Metric.Date) })
	return out, nil
}
