package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap calls by endpoint (forecast, find, weather) and status class.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per call. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	// Retry attempts per endpoint. High values mean an unstable upstream.
	UpstreamRetriesTotal *prometheus.CounterVec

	// Final upstream failures by stable category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	CacheHitsTotal                *prometheus.CounterVec
	CacheMissesTotal              *prometheus.CounterVec
	CacheErrorsTotal              *prometheus.CounterVec
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Forecasts served from stale cache after an upstream failure.
	StaleCacheServesTotal *prometheus.CounterVec
	StaleCacheAgeSeconds  prometheus.Histogram

	// Requests that shared an upstream call with a concurrent request for the same location.
	RequestCoalescingHitsTotal *prometheus.CounterVec

	// Concurrent misses on one key. Watch for: bursts right after cache expiry.
	CacheStampedeDetectedTotal *prometheus.CounterVec

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// 0=closed, 1=open, 2=half_open.
	CircuitBreakerState            *prometheus.GaugeVec
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	ForecastQueriesTotal           prometheus.Counter
	ForecastQueriesByLocationTotal *prometheus.CounterVec

	// Forecast days rendered without a post-dawn representative sample.
	ForecastDaysMissingTotal prometheus.Counter

	// Location searches by outcome (ok, too_short, error).
	LocationSearchesTotal *prometheus.CounterVec

	RateLimitDeniedTotal prometheus.Counter

	trackedLocationsMu sync.RWMutex
	trackedLocations   map[string]struct{}

	trafficGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "httpRequestsTotal", Help: "Total number of HTTP requests"},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "httpRequestsInFlight", Help: "Number of HTTP requests currently being served"},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstreamCallsTotal", Help: "Total number of OpenWeatherMap API calls"},
		[]string{"endpoint", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstreamRetriesTotal", Help: "Total number of retry attempts for OpenWeatherMap calls"},
		[]string{"endpoint"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "upstreamErrorsTotal", Help: "Failed OpenWeatherMap calls by error category"},
		[]string{"category"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheHitsTotal", Help: "Total number of cache hits"},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheMissesTotal", Help: "Total number of cache misses"},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheErrorsTotal", Help: "Cache backend errors by operation and category"},
		[]string{"operation", "category"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Cache operation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "result"},
	)
	StaleCacheServesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "staleCacheServesTotal", Help: "Forecasts served from stale cache after upstream failure"},
		[]string{"location"},
	)
	StaleCacheAgeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "staleCacheAgeSeconds",
			Help:    "Age of stale forecasts when served",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200},
		},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "requestCoalescingHitsTotal", Help: "Requests that shared an in-flight upstream call"},
		[]string{"location"},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheStampedeDetectedTotal", Help: "Cache misses that found another miss in progress for the same key"},
		[]string{"location"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheWarmingTotal", Help: "Cache warming runs"},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheWarmingErrorsTotal", Help: "Cache warming runs with at least one failed location"},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming run duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "circuitBreakerState", Help: "Circuit breaker state: 0=closed, 1=open, 2=half_open"},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "circuitBreakerTransitionsTotal", Help: "Circuit breaker state transitions"},
		[]string{"component", "from", "to"},
	)
	ForecastQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "forecastQueriesTotal", Help: "Total number of forecast lookups"},
	)
	ForecastQueriesByLocationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "forecastQueriesByLocationTotal", Help: "Forecast queries by location (allow-list; others use location=other)"},
		[]string{"location"},
	)
	ForecastDaysMissingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "forecastDaysMissingTotal", Help: "Forecast days rendered without a representative sample"},
	)
	LocationSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "locationSearchesTotal", Help: "Location searches by result"},
		[]string{"result"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rateLimitDeniedTotal", Help: "Total number of requests denied by rate limiter (429)"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamRetriesTotal, UpstreamErrorsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal, CacheOperationDurationSeconds,
		StaleCacheServesTotal, StaleCacheAgeSeconds,
		RequestCoalescingHitsTotal, CacheStampedeDetectedTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		ForecastQueriesTotal, ForecastQueriesByLocationTotal, ForecastDaysMissingTotal,
		LocationSearchesTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterTrafficGauges registers sliding-window load gauges fed by the traffic tracker.
// Call from main after config load; the window matches the health overload window.
func RegisterTrafficGauges(window time.Duration) {
	trafficGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited routes in the sliding window",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in the sliding window",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// RecordCircuitBreakerTransition counts a transition and updates the state gauge.
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// SetTrackedLocations sets the allow-list for location metrics. Non-tracked locations increment "other".
func SetTrackedLocations(locations []string) {
	trackedLocationsMu.Lock()
	defer trackedLocationsMu.Unlock()
	trackedLocations = make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		trackedLocations[normalizeLocationForMetrics(loc)] = struct{}{}
	}
}

// MetricLocationLabel returns the normalized location when it is tracked, otherwise "other".
// Keeps label cardinality bounded.
func MetricLocationLabel(location string) string {
	loc := normalizeLocationForMetrics(location)
	trackedLocationsMu.RLock()
	_, ok := trackedLocations[loc]
	trackedLocationsMu.RUnlock()
	if ok {
		return loc
	}
	return "other"
}

// RecordForecastQuery records a forecast query for the given location.
func RecordForecastQuery(location string) {
	ForecastQueriesTotal.Inc()
	ForecastQueriesByLocationTotal.WithLabelValues(MetricLocationLabel(location)).Inc()
}

func normalizeLocationForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
