package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// ForecastFetcher is implemented by the service layer; fetching through it populates the cache.
// Declared here so the cache package does not import service.
type ForecastFetcher interface {
	GetForecast(ctx context.Context, location string) (models.Forecast, error)
}

// CacheWarmer prefetches forecasts for a fixed list of locations.
type CacheWarmer struct {
	fetcher   ForecastFetcher
	logger    *zap.Logger
	timeout   time.Duration
	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

// NewCacheWarmer creates a CacheWarmer. timeout bounds each warm run; 0 means 30s.
func NewCacheWarmer(fetcher ForecastFetcher, logger *zap.Logger, timeout time.Duration) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CacheWarmer{fetcher: fetcher, logger: logger, timeout: timeout}
}

// Warm fetches each location concurrently. Returns the joined per-location errors, if any.
func (w *CacheWarmer) Warm(ctx context.Context, locations []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			if _, err := w.fetcher.GetForecast(ctx, loc); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", loc, err)
			}
		}(loc)
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}

// Start schedules Warm every interval on a UTC scheduler. The first run happens immediately.
// Runs never overlap. Calling Start twice without Stop returns an error.
func (w *CacheWarmer) Start(locations []string, interval time.Duration) error {
	if len(locations) == 0 {
		w.logger.Info("cache warming: no locations configured; nothing to schedule")
		return nil
	}
	if interval <= 0 {
		return fmt.Errorf("cache warming: interval must be positive, got %s", interval)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler != nil {
		return errors.New("cache warming: already started")
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Warm(ctx, locations); err != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	s.StartAsync()
	w.scheduler = s
	return nil
}

// Stop cancels future warm runs. Safe to call when not started.
func (w *CacheWarmer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler != nil {
		w.scheduler.Stop()
		w.scheduler = nil
	}
}
