package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/summary"
	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
	"github.com/kjstillabower/weather-forecast-service/internal/validation"
)

// ForecastProvider is the service surface the handlers depend on.
type ForecastProvider interface {
	GetForecast(ctx context.Context, location string) (models.Forecast, error)
	GetSummary(ctx context.Context, location string) (summary.Summary, error)
	SuggestLocations(ctx context.Context, query string) ([]models.LocationSuggestion, error)
	ResolveCoordinates(ctx context.Context, lat, lon float64) (string, error)
}

// APIKeyValidator confirms the upstream key is usable. Implemented by client.OpenWeatherClient
// and by degraded.KeyMonitor, which caches the answer.
type APIKeyValidator interface {
	ValidateAPIKey(ctx context.Context) error
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// CircuitState, when set, reports the upstream circuit breaker state.
	CircuitState func() string
	Version      string
}

// Limits bounds user input accepted by the handlers.
type Limits struct {
	LocationMinLength int
	LocationMaxLength int
	SearchMaxLength   int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	forecasts        ForecastProvider
	keyValidator     APIKeyValidator
	healthConfig     *HealthConfig
	logger           *zap.Logger
	limits           Limits
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil, in which case health only
// checks the API key.
func NewHandler(forecasts ForecastProvider, keyValidator APIKeyValidator, healthConfig *HealthConfig, logger *zap.Logger, limits Limits) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		forecasts:    forecasts,
		keyValidator: keyValidator,
		healthConfig: healthConfig,
		logger:       logger,
		limits:       limits,
	}
}

// GetForecast handles GET /forecast/{location}: the rendered today panel and daily rows.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	location, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	observability.RecordForecastQuery(location)

	result, err := h.forecasts.GetSummary(r.Context(), location)
	recordOutcome(err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// samplesResponse is the raw forecast plus its distinct UTC dates.
type samplesResponse struct {
	Forecast models.Forecast         `json:"forecast"`
	Dates    []forecast.CalendarDate `json:"dates"`
}

// GetForecastSamples handles GET /forecast/{location}/samples.
func (h *Handler) GetForecastSamples(w http.ResponseWriter, r *http.Request) {
	location, ok := h.locationParam(w, r)
	if !ok {
		return
	}
	observability.RecordForecastQuery(location)

	f, err := h.forecasts.GetForecast(r.Context(), location)
	recordOutcome(err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, samplesResponse{Forecast: f, Dates: forecast.DistinctDates(f.Samples)})
}

// SearchLocations handles GET /locations/search?q=. Short queries yield an empty list.
func (h *Handler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ValidateSearchQuery(r.URL.Query().Get("q"), h.limits.SearchMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	suggestions, err := h.forecasts.SuggestLocations(r.Context(), q)
	recordOutcome(err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// ReverseLocation handles GET /locations/reverse?lat=&lon=.
func (h *Handler) ReverseLocation(w http.ResponseWriter, r *http.Request) {
	coords, err := validation.ValidateCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	name, err := h.forecasts.ResolveCoordinates(r.Context(), coords.Lat, coords.Lon)
	recordOutcome(err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (h *Handler) locationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	location, err := validation.ValidateLocation(mux.Vars(r)["location"], h.limits.LocationMinLength, h.limits.LocationMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return "", false
	}
	return location, true
}

// recordOutcome feeds the degraded-state window. Unknown locations are upstream answers, not failures.
func recordOutcome(err error) {
	if err == nil || errors.Is(err, client.ErrLocationNotFound) {
		traffic.RecordSuccess()
		return
	}
	traffic.RecordError()
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			checks["cache"] = "healthy"
			if h.healthConfig.CachePing() != nil {
				checks["cache"] = "unhealthy"
			}
		}
		if h.healthConfig.CircuitState != nil {
			checks["weatherApiCircuit"] = h.healthConfig.CircuitState()
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > API key invalid > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.keyValidator != nil {
		if err := h.keyValidator.ValidateAPIKey(ctx); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
		}
	}
	cfg := h.healthConfig
	if cfg == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	// Overload: requests in the window above a percentage of what the rate limit admits.
	if cfg.RateLimitRPS > 0 && cfg.OverloadWindow > 0 && cfg.OverloadThresholdPct > 0 {
		threshold := float64(cfg.RateLimitRPS) * cfg.OverloadWindow.Seconds() * float64(cfg.OverloadThresholdPct) / 100
		if float64(traffic.RequestCount(cfg.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(cfg.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":{"code","message","requestId"}}; requestId is the correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps service errors: unknown location is 404, everything else 503.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Debug("upstream error", zap.Error(err))
	if errors.Is(err, client.ErrLocationNotFound) {
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "Location not found")
		return
	}
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch forecast data")
}
