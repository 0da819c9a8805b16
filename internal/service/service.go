// Package service runs the reconciliation pipeline: per-request fan-out to
// every source (through the cache), then date-union merge and rate
// derivation. Per-source failures degrade that source to stale or zeroed
// data; nothing here is fatal to the request.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcamposv/metrica/internal/cache"
	"github.com/mcamposv/metrica/internal/merge"
	"github.com/mcamposv/metrica/internal/metrics"
	"github.com/mcamposv/metrica/internal/models"
	"github.com/mcamposv/metrica/internal/rates"
)

// Source is one external system's client+adapter.
type Source interface {
	Tag() string
	Fetch(ctx context.Context, from, to time.Time) ([]models.DailyMetric, error)
}

const defaultTTL = 5 * time.Minute

var ErrBadRange = errors.New("bad date range: from must not be after to")

// Service answers dashboard queries. Safe for concurrent use; the only
// shared state is the cache store, whose upserts are idempotent.
type Service struct {
	st      cache.Store
	sources []Source
	ttl     map[string]time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func New(st cache.Store, sources []Source, ttl map[string]time.Duration, log *slog.Logger) *Service {
	return &Service{st: st, sources: sources, ttl: ttl, log: log, now: time.Now}
}

// GetMetrics serves [from, to], honoring cache freshness. only filters by
// source tag; empty means all sources.
func (s *Service) GetMetrics(ctx context.Context, from, to time.Time, only []string) (*models.Report, error) {
	return s.run(ctx, from, to, only, false)
}

// ForceRefresh serves the same shape but always re-fetches, ignoring TTLs.
func (s *Service) ForceRefresh(ctx context.Context, from, to time.Time) (*models.Report, error) {
	return s.run(ctx, from, to, nil, true)
}

func (s *Service) run(ctx context.Context, from, to time.Time, only []string, force bool) (*models.Report, error) {
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return nil, ErrBadRange
	}

	sel := s.selectSources(only)

	type result struct {
		tag    string
		series []models.DailyMetric
		status models.SourceStatus
	}
	results := make([]result, len(sel))

	// fan-out por fuente; el estado compartido es solo el cache (upserts idempotentes)
	var wg sync.WaitGroup
	for i, src := range sel {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			series, status := s.collect(ctx, src, from, to, force)
			results[i] = result{tag: src.Tag(), series: series, status: status}
		}(i, src)
	}
	wg.Wait()

	bySource := make(map[string][]models.DailyMetric, len(results))
	statuses := make([]models.SourceStatus, 0, len(results))
	for _, r := range results {
		bySource[r.tag] = r.series
		statuses = append(statuses, r.status)
	}

	daily := merge.Merge(bySource)
	return &models.Report{
		Summary: rates.Summarize(daily),
		Daily:   daily,
		Sources: statuses,
	}, nil
}

func (s *Service) selectSources(only []string) []Source {
	if len(only) == 0 {
		return s.sources
	}
	want := make(map[string]struct{}, len(only))
	for _, t := range only {
		want[t] = struct{}{}
	}
	var sel []Source
	for _, src := range s.sources {
		if _, ok := want[src.Tag()]; ok {
			sel = append(sel, src)
		}
	}
	return sel
}

// collect resolves one source for the range: fresh cache wins; otherwise
// fetch and upsert; on fetch failure serve whatever is cached (stale) or
// degrade to an empty series with the error recorded for display.
func (s *Service) collect(ctx context.Context, src Source, from, to time.Time, force bool) ([]models.DailyMetric, models.SourceStatus) {
	tag := src.Tag()
	cached, err := s.st.Get(ctx, tag, from, to)
	if err != nil {
		// un cache roto no debe tumbar la consulta
		s.log.Warn("cache read failed", slog.String("source", tag), slog.String("err", err.Error()))
		cached = nil
	}

	if !force && s.allFresh(tag, cached, from, to) {
		metrics.CacheHits.Inc()
		return entrySeries(cached), models.SourceStatus{Source: tag, State: models.StateFresh}
	}
	metrics.CacheMisses.Inc()

	fetched, ferr := src.Fetch(ctx, from, to)
	if ferr == nil {
		metrics.SourceFetchTotal.WithLabelValues(tag, "ok").Inc()
		for _, m := range fetched {
			if perr := s.st.Put(ctx, tag, m); perr != nil {
				s.log.Warn("cache write failed", slog.String("source", tag), slog.String("err", perr.Error()))
			}
		}
		return fetched, models.SourceStatus{Source: tag, State: models.StateFetched}
	}

	metrics.SourceFetchTotal.WithLabelValues(tag, "error").Inc()
	s.log.Warn("source fetch failed", slog.String("source", tag), slog.String("err", ferr.Error()))
	if len(cached) > 0 {
		metrics.StaleServed.Inc()
		return entrySeries(cached), models.SourceStatus{Source: tag, State: models.StateStale, Error: ferr.Error()}
	}
	return nil, models.SourceStatus{Source: tag, State: models.StateFailed, Error: ferr.Error()}
}

// allFresh holds only when every day in the range has an entry inside the
// source's TTL. Any stale or missing day forces a re-fetch of the range.
func (s *Service) allFresh(tag string, entries []models.CacheEntry, from, to time.Time) bool {
	if len(entries) == 0 {
		return false
	}
	ttl, ok := s.ttl[tag]
	if !ok {
		ttl = defaultTTL
	}
	byDay := make(map[time.Time]models.CacheEntry, len(entries))
	for _, e := range entries {
		byDay[models.Day(e.Metric.Date)] = e
	}
	now := s.now()
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		e, ok := byDay[day]
		if !ok || now.Sub(e.UpdatedAt) >= ttl {
			return false
		}
	}
	return true
}

func entrySeries(entries []models.CacheEntry) []models.DailyMetric {
	out := make([]models.DailyMetric, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Metric)
	}
	return out
}
