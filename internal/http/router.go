package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// NewRouter wires routes and middleware. limiter may be nil (rate limiting disabled);
// requestTimeout 0 disables the per-request deadline.
func NewRouter(h *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	forecastRouter := router.PathPrefix("/forecast").Subrouter()
	locationRouter := router.PathPrefix("/locations").Subrouter()
	for _, sub := range []*mux.Router{forecastRouter, locationRouter} {
		sub.Use(RateLimitMiddleware(limiter))
		if requestTimeout > 0 {
			sub.Use(TimeoutMiddleware(requestTimeout))
		}
	}
	forecastRouter.HandleFunc("/{location}", h.GetForecast).Methods(http.MethodGet)
	forecastRouter.HandleFunc("/{location}/samples", h.GetForecastSamples).Methods(http.MethodGet)
	locationRouter.HandleFunc("/search", h.SearchLocations).Methods(http.MethodGet)
	locationRouter.HandleFunc("/reverse", h.ReverseLocation).Methods(http.MethodGet)
	return router
}
