package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
)

// CorrelationIDMiddleware reuses the caller's X-Correlation-ID or generates one, echoes it,
// and stores it with a child logger in the request context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}
			w.Header().Set("X-Correlation-ID", corrID)

			ctx := observability.WithCorrelationID(r.Context(), corrID)
			ctx = observability.WithLogger(ctx, logger.With(zap.String("correlation_id", corrID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request count and latency by route template and tracks in-flight requests.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPRequestsInFlight.Inc()
		globalInFlightTracker.Increment()
		defer func() {
			globalInFlightTracker.Decrement()
			observability.HTTPRequestsInFlight.Dec()
		}()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		route := getRoute(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(recorder.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// getRoute returns the matched route template so that location values do not become labels.
func getRoute(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// TimeoutMiddleware sets a deadline on the request context. When exceeded, downstream handlers
// receive context.DeadlineExceeded.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware returns 429 when the token bucket is exhausted. Disabled when limiter is nil.
func RateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				observability.LoggerFromContext(r.Context()).Debug("rate limit denied")
				traffic.RecordDenied()
				observability.RateLimitDeniedTotal.Inc()
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
