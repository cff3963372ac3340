package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/weather-forecast-service/internal/cache"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/summary"
)

// MinSearchQueryLength is the shortest query forwarded to the upstream location search.
const MinSearchQueryLength = 3

// ErrCoalesceTimeout is returned when waiting on a shared upstream fetch exceeds the coalesce timeout.
var ErrCoalesceTimeout = errors.New("timed out waiting for in-flight forecast fetch")

const cacheType = "forecast"

// ForecastService orchestrates forecast retrieval: cache-aside over the upstream client,
// with request coalescing and stale-cache fallback.
type ForecastService struct {
	client          client.WeatherClient
	cache           cache.Cache
	ttl             time.Duration
	staleCacheTTL   time.Duration // Maximum age for stale cache fallback (0 = disabled)
	stampedeTracker *stampedeTracker
	group           *singleflight.Group // nil when coalescing is disabled
	coalesceTimeout time.Duration
}

// NewForecastService creates a ForecastService.
// ttl is the cache lifetime of a fetched forecast; staleCacheTTL is the maximum age served
// from cache when the upstream fails (0 disables). Coalescing is enabled only when
// coalesceEnabled is set and coalesceTimeout > 0.
func NewForecastService(client client.WeatherClient, cache cache.Cache, ttl, staleCacheTTL time.Duration, coalesceEnabled bool, coalesceTimeout time.Duration) *ForecastService {
	s := &ForecastService{
		client:          client,
		cache:           cache,
		ttl:             ttl,
		staleCacheTTL:   staleCacheTTL,
		stampedeTracker: newStampedeTracker(),
	}
	if coalesceEnabled && coalesceTimeout > 0 {
		s.group = &singleflight.Group{}
		s.coalesceTimeout = coalesceTimeout
	}
	return s
}

// GetForecast returns the forecast for location, from cache when fresh, otherwise from upstream.
// When upstream fails and a cached copy younger than the stale TTL exists, that copy is
// returned with Stale set.
func (s *ForecastService) GetForecast(ctx context.Context, location string) (models.Forecast, error) {
	key := normalizeLocation(location)
	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		logger.Warn("cache get failed", zap.String("location", key), zap.Error(err))
	case ok:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues(cacheType).Inc()
		logger.Debug("forecast served", zap.String("location", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		return cached, nil
	default:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}

	concurrentMisses := s.stampedeTracker.RecordMiss(key)
	defer s.stampedeTracker.RecordHit(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(observability.MetricLocationLabel(key)).Inc()
	}

	logger.Debug("cache miss, fetching upstream", zap.String("location", key))

	data, upstreamErr := s.fetch(ctx, key)
	if upstreamErr != nil {
		if stale, ok := s.staleFallback(ctx, key, logger); ok {
			return stale, nil
		}
		return models.Forecast{}, fmt.Errorf("fetch forecast for %s: %w", key, upstreamErr)
	}

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, key, data, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		logger.Warn("cache set failed", zap.String("location", key), zap.Error(setErr))
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	logger.Debug("forecast served", zap.String("location", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return data, nil
}

// fetch calls upstream, sharing one in-flight call per key when coalescing is enabled.
// The shared call is detached from the first caller's cancellation so that waiters are not
// failed by it; it keeps the caller's values (correlation ID). Only waiters are bounded by the
// coalesce timeout; the caller whose function runs waits for its own upstream call.
func (s *ForecastService) fetch(ctx context.Context, key string) (models.Forecast, error) {
	if s.group == nil {
		return s.client.GetForecast(ctx, key)
	}

	var leader atomic.Bool
	ch := s.group.DoChan(key, func() (interface{}, error) {
		leader.Store(true)
		return s.client.GetForecast(context.WithoutCancel(ctx), key)
	})
	timer := time.NewTimer(s.coalesceTimeout)
	defer timer.Stop()
	timeout := timer.C

	for {
		select {
		case res := <-ch:
			if res.Shared {
				observability.RequestCoalescingHitsTotal.WithLabelValues(observability.MetricLocationLabel(key)).Inc()
			}
			if res.Err != nil {
				return models.Forecast{}, res.Err
			}
			return res.Val.(models.Forecast), nil
		case <-ctx.Done():
			return models.Forecast{}, ctx.Err()
		case <-timeout:
			if !leader.Load() {
				return models.Forecast{}, ErrCoalesceTimeout
			}
			timeout = nil
		}
	}
}

func (s *ForecastService) staleFallback(ctx context.Context, key string, logger *zap.Logger) (models.Forecast, bool) {
	if s.staleCacheTTL <= 0 {
		return models.Forecast{}, false
	}
	stale, ok, err := s.cache.GetStale(ctx, key, s.staleCacheTTL)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get_stale", categorizeCacheError(err)).Inc()
		return models.Forecast{}, false
	}
	if !ok {
		return models.Forecast{}, false
	}
	age := time.Since(stale.FetchedAt)
	observability.StaleCacheServesTotal.WithLabelValues(observability.MetricLocationLabel(key)).Inc()
	observability.StaleCacheAgeSeconds.Observe(age.Seconds())
	logger.Info("serving stale cache", zap.String("location", key), zap.Duration("age", age))
	stale.Stale = true
	return stale, true
}

// GetSummary fetches the forecast for location and renders it.
func (s *ForecastService) GetSummary(ctx context.Context, location string) (summary.Summary, error) {
	f, err := s.GetForecast(ctx, location)
	if err != nil {
		return summary.Summary{}, err
	}
	sum := summary.Build(f)
	for _, d := range sum.Days {
		if !d.Available {
			observability.ForecastDaysMissingTotal.Inc()
		}
	}
	return sum, nil
}

// SuggestLocations returns place-name suggestions for a partial query. Queries shorter than
// MinSearchQueryLength runes return an empty list without calling upstream.
func (s *ForecastService) SuggestLocations(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinSearchQueryLength {
		observability.LocationSearchesTotal.WithLabelValues("too_short").Inc()
		return []models.LocationSuggestion{}, nil
	}
	out, err := s.client.FindLocations(ctx, q)
	if err != nil {
		observability.LocationSearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("search locations %q: %w", q, err)
	}
	observability.LocationSearchesTotal.WithLabelValues("ok").Inc()
	if out == nil {
		out = []models.LocationSuggestion{}
	}
	return out, nil
}

// ResolveCoordinates returns the place name at (lat, lon).
func (s *ForecastService) ResolveCoordinates(ctx context.Context, lat, lon float64) (string, error) {
	name, err := s.client.LocationByCoordinates(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("resolve %g,%g: %w", lat, lon, err)
	}
	return name, nil
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}

// normalizeLocation trims whitespace and lowercases, so cache keys and upstream queries
// do not depend on input formatting.
func normalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
