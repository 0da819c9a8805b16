// Package metrics holds the Prometheus instrumentation, exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrica_source_fetch_total",
			Help: "Outcomes of external source fetches",
		},
		[]string{"source", "outcome"}, // outcome: ok | error
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metrica_cache_hits_total",
			Help: "Requests fully served from fresh cache entries",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metrica_cache_misses_total",
			Help: "Requests that needed an upstream fetch (stale or missing entries)",
		},
	)

	StaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metrica_cache_stale_served_total",
			Help: "Times stale cache data was served because a fetch failed",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metrica_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
