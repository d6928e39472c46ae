package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks fetch outcomes per data type
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_fetches_total",
			Help: "Total number of fetch requests by outcome",
		},
		[]string{"data_type", "outcome"},
	)

	// SourceCallsTotal tracks upstream hook invocations per source
	SourceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_source_calls_total",
			Help: "Total number of upstream source calls",
		},
		[]string{"source", "result"},
	)

	// SourceLatency tracks upstream call latency per source
	SourceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetcher_source_latency_seconds",
			Help:    "Upstream source call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// CacheHitsTotal tracks cache hits per tier
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier"},
	)

	// StaleServesTotal tracks responses served from expired cache entries
	StaleServesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_stale_serves_total",
			Help: "Total number of responses served stale",
		},
		[]string{"data_type", "source"},
	)

	// BreakerSkipsTotal tracks sources skipped because their circuit was open
	BreakerSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_breaker_skips_total",
			Help: "Total number of sources skipped due to an open circuit",
		},
		[]string{"source"},
	)
)
