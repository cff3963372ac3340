package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/cache"
	"github.com/kjstillabower/weather-forecast-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/config"
	"github.com/kjstillabower/weather-forecast-service/internal/degraded"
	httphandler "github.com/kjstillabower/weather-forecast-service/internal/http"
	"github.com/kjstillabower/weather-forecast-service/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/service"
)

const upstreamComponent = "weather_api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.WeatherAPIKey,
		cfg.WeatherAPIURL,
		cfg.WeatherAPITimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}
	weatherClient.SetForecastCount(cfg.ForecastCount)

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.CircuitBreakerEnabled {
		breaker = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
			Component:        upstreamComponent,
			IsFailure:        client.IsBreakerFailure,
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(upstreamComponent, from.String(), to.String(), int(to))
				logger.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		weatherClient.SetCircuitBreaker(breaker)
		observability.CircuitBreakerState.WithLabelValues(upstreamComponent).Set(0)
		logger.Info("circuit breaker enabled", zap.Int("failure_threshold", cfg.CircuitBreakerFailureThreshold), zap.Duration("timeout", cfg.CircuitBreakerTimeout))
	}

	var cacheSvc cache.Cache
	var memcached *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.StaleCacheTTL)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcached = mc
		cacheSvc = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		cacheSvc = cache.NewInMemoryCache(cfg.StaleCacheTTL)
		logger.Info("cache backend: in_memory")
	}
	forecastService := service.NewForecastService(weatherClient, cacheSvc, cfg.CacheTTL, cfg.StaleCacheTTL, cfg.CoalesceEnabled, cfg.CoalesceTimeout)

	observability.RegisterTrafficGauges(cfg.OverloadWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	warmer := cache.NewCacheWarmer(forecastService, logger, cfg.WarmingTimeout)
	if cfg.WarmingEnabled {
		if err := warmer.Start(cfg.WarmingLocations, cfg.WarmingInterval); err != nil {
			logger.Error("cache warming not started", zap.Error(err))
		}
	}

	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		Version:              version,
	}
	if memcached != nil {
		healthConfig.CachePing = memcached.Ping
	}
	if breaker != nil {
		healthConfig.CircuitState = func() string { return breaker.State().String() }
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	limits := httphandler.Limits{
		LocationMinLength: cfg.LocationMinLength,
		LocationMaxLength: cfg.LocationMaxLength,
		SearchMaxLength:   cfg.SearchMaxLength,
	}
	keyMonitor := degraded.NewKeyMonitor(weatherClient.ValidateAPIKey, cfg.KeyCheckInterval, cfg.DegradedRetryInitial, cfg.DegradedRetryMax)
	if err := keyMonitor.ValidateAPIKey(context.Background()); err != nil {
		logger.Warn("weather api key check failed at startup", zap.Error(err))
	}
	handler := httphandler.NewHandler(forecastService, keyMonitor, healthConfig, logger, limits)
	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	warmer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
