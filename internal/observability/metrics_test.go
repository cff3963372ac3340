package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestMetrics_Usable verifies label dimensions match usage in the client, http, service,
// and cache packages.
func TestMetrics_Usable(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/forecast/{location}", "2xx").Inc()
	HTTPRequestDuration.WithLabelValues("GET", "/forecast/{location}").Observe(0.01)
	UpstreamCallsTotal.WithLabelValues("forecast", "success").Inc()
	UpstreamDuration.WithLabelValues("forecast", "success").Observe(0.1)
	UpstreamRetriesTotal.WithLabelValues("find").Inc()
	UpstreamErrorsTotal.WithLabelValues("timeout").Inc()
	CacheHitsTotal.WithLabelValues("forecast").Inc()
	CacheMissesTotal.WithLabelValues("forecast").Inc()
	CacheErrorsTotal.WithLabelValues("get", "timeout").Inc()
	CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(0.001)
	StaleCacheServesTotal.WithLabelValues("other").Inc()
	RequestCoalescingHitsTotal.WithLabelValues("other").Inc()
	CacheStampedeDetectedTotal.WithLabelValues("other").Inc()
	LocationSearchesTotal.WithLabelValues("ok").Inc()
	RecordCircuitBreakerTransition("weather_api", "closed", "open", 1)
	RegisterTrafficGauges(time.Minute)
	RegisterTrafficGauges(time.Minute) // second call is a no-op
}

// TestMetricLocationLabel verifies tracked locations keep their label and others map to "other".
func TestMetricLocationLabel(t *testing.T) {
	SetTrackedLocations([]string{"Seattle", "portland"})
	defer SetTrackedLocations(nil)

	if got := MetricLocationLabel("  SEATTLE "); got != "seattle" {
		t.Errorf("MetricLocationLabel(SEATTLE) = %q, want seattle", got)
	}
	if got := MetricLocationLabel("unknown-city"); got != "other" {
		t.Errorf("MetricLocationLabel(unknown-city) = %q, want other", got)
	}
	RecordForecastQuery("portland")
}

// TestMetricsHandler_ServesPrometheusFormat verifies the handler serves the text exposition format.
func TestMetricsHandler_ServesPrometheusFormat(t *testing.T) {
	HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Inc()
	handler := MetricsHandler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("MetricsHandler status = %d, want 200", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "httpRequestsTotal") {
		t.Error("MetricsHandler response should contain metric output")
	}
}
