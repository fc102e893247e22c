// Package metrics holds the Prometheus instruments shared by the cache, the
// resolvers and the language server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyassist_modinfo_cache_hits_total",
		Help: "Module info lookups answered from the cache.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyassist_modinfo_cache_misses_total",
		Help: "Module info lookups that parsed a file not seen before.",
	})

	CacheReparses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyassist_modinfo_cache_reparses_total",
		Help: "Module info lookups that re-parsed a file modified since it was cached.",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyassist_modinfo_cache_entries",
		Help: "Current number of cached module infos.",
	})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyassist_parse_seconds",
		Help:    "Time spent building brief module info for a file.",
		Buckets: prometheus.DefBuckets,
	})

	CompletionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyassist_completion_requests_total",
		Help: "Completion requests by the branch that produced the answer.",
	}, []string{"source"})

	BackendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyassist_backend_failures_total",
		Help: "Code-assist backend calls that failed and fell back.",
	}, []string{"operation"})

	IntrospectionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyassist_introspection_seconds",
		Help:    "Time spent introspecting a module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"introspector"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyassist_watcher_events_total",
		Help: "File system events received by the watcher.",
	})

	LSPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyassist_lsp_requests_total",
		Help: "Language server requests by method.",
	}, []string{"method"})
)
