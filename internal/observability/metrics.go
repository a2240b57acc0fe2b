package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate for serve mode.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Comment generation requests by outcome (success / failure).
	GenerationsTotal *prometheus.CounterVec

	// End-to-end pipeline latency. Watch for: p95 above the soft request budget.
	GenerationDuration prometheus.Histogram

	// Selection retry-loop iterations per request.
	SelectionRetriesTotal prometheus.Counter

	// Upstream weather API call rate by status label.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Upstream weather API latency.
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts against the weather API. High values = unstable upstream.
	WeatherAPIRetriesTotal prometheus.Counter

	// Forecast cache hits per layer (l1 / l2_direct / l2_neighbor / l3 / memcached).
	ForecastCacheHitsTotal *prometheus.CounterVec

	// Forecast cache misses (all layers fell through).
	ForecastCacheMissesTotal prometheus.Counter

	// Comment query cache hits per level (l1 / l2 / l3).
	CommentCacheHitsTotal *prometheus.CounterVec

	// Corpus index rebuilds (hash mismatch or unreadable sidecar).
	IndexRebuildsTotal prometheus.Counter

	// LLM calls by provider and status (success / error / fallback).
	LLMCallsTotal *prometheus.CounterVec

	// LLM call latency by provider.
	LLMCallDuration *prometheus.HistogramVec

	// Safety rewriter substitutions by rule.
	RewriteTotal *prometheus.CounterVec

	// Cache warming runs and failures.
	CacheWarmingTotal       prometheus.Counter
	CacheWarmingErrorsTotal prometheus.Counter

	// Process memory usage percentage, sampled by the memory monitor.
	MemoryUsagePct prometheus.Gauge

	// Rate limit denials in serve mode.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commentGenerationsTotal",
			Help: "Comment generation requests by outcome",
		},
		[]string{"outcome"},
	)
	GenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commentGenerationDurationSeconds",
			Help:    "End-to-end pipeline latency in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	SelectionRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "selectionRetriesTotal",
			Help: "Selection retry-loop iterations across all requests",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of upstream weather API calls",
		},
		[]string{"status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Upstream weather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherApiRetriesTotal",
			Help: "Total number of retry attempts for weather API calls",
		},
	)
	ForecastCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastCacheHitsTotal",
			Help: "Forecast cache hits by layer",
		},
		[]string{"layer"},
	)
	ForecastCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastCacheMissesTotal",
			Help: "Forecast cache lookups that missed every layer",
		},
	)
	CommentCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commentCacheHitsTotal",
			Help: "Comment query cache hits by level",
		},
		[]string{"level"},
	)
	IndexRebuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "corpusIndexRebuildsTotal",
			Help: "Corpus index rebuilds triggered by content-hash mismatch",
		},
	)
	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmCallsTotal",
			Help: "LLM calls by provider and status",
		},
		[]string{"provider", "status"},
	)
	LLMCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmCallDurationSeconds",
			Help:    "LLM call latency in seconds by provider",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)
	RewriteTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safetyRewritesTotal",
			Help: "Safety rewriter substitutions by rule",
		},
		[]string{"rule"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs that ended with at least one failure",
		},
	)
	MemoryUsagePct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "processMemoryUsagePct",
			Help: "Process RSS as a percentage of system memory",
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration,
		GenerationsTotal, GenerationDuration, SelectionRetriesTotal,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal,
		ForecastCacheHitsTotal, ForecastCacheMissesTotal,
		CommentCacheHitsTotal, IndexRebuildsTotal,
		LLMCallsTotal, LLMCallDuration,
		RewriteTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal,
		MemoryUsagePct,
		RateLimitDeniedTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
