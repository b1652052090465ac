package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the proxy endpoint. Watch for: sudden drops or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p99 approaching the provider timeout.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream provider calls by provider and status (success, timeout, network, http_status, shape, circuit_open).
	ProviderCallsTotal *prometheus.CounterVec

	// Upstream latency per provider. Watch for: p95 near the 12s abort.
	ProviderDuration *prometheus.HistogramVec

	// Terminal outcome of each resolution: fresh_cache, proxy, primary, secondary, stale_cache, unavailable.
	ResolutionsTotal *prometheus.CounterVec

	// Cache lookups by result: fresh, stale, miss, corrupt, error.
	CacheLookupsTotal *prometheus.CounterVec

	// Cache writes by result: success, error.
	CacheWritesTotal *prometheus.CounterVec

	// Warnings dropped by the per-key throttle. High values = sustained failure on a polling path.
	WarningsSuppressedTotal *prometheus.CounterVec

	// Circuit breaker state per provider (0 closed, 1 half-open, 2 open).
	CircuitBreakerState *prometheus.GaugeVec

	// Periodic refresh runs and their errors.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Rate limit denials (429).
	RateLimitDeniedTotal prometheus.Counter

	outcomeGaugesOnce sync.Once
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
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of upstream weather provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerDurationSeconds",
			Help:    "Upstream weather provider latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider", "status"},
	)
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherResolutionsTotal",
			Help: "Weather resolutions by terminal outcome",
		},
		[]string{"outcome"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Weather cache lookups by result",
		},
		[]string{"mode", "result"},
	)
	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheWritesTotal",
			Help: "Weather cache writes by result",
		},
		[]string{"result"},
	)
	WarningsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warningsSuppressedTotal",
			Help: "Warnings dropped by the per-key log throttle",
		},
		[]string{"key"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Provider circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"provider"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache refresh runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache refresh runs where at least one language was unavailable",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of cache refresh runs",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30},
		},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderDuration,
		ResolutionsTotal, CacheLookupsTotal, CacheWritesTotal,
		WarningsSuppressedTotal, CircuitBreakerState,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		RateLimitDeniedTotal,
	)
}

// RegisterOutcomeGauges exposes the sliding-window resolution counts used by /health.
// counts returns (degraded, total) for the window. Safe to call more than once.
func RegisterOutcomeGauges(counts func() (degraded, total int)) {
	outcomeGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "resolutionsInWindow",
					Help: "Resolutions in the health sliding window",
				},
				func() float64 { _, total := counts(); return float64(total) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "degradedResolutionsInWindow",
					Help: "Stale or unavailable resolutions in the health sliding window",
				},
				func() float64 { d, _ := counts(); return float64(d) },
			),
		)
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
