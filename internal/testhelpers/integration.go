//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/cache"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/service"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey        string
	APIURL        string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/2.5"
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}

	return IntegrationTestConfig{
		APIKey:        apiKey,
		APIURL:        apiURL,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationClient creates a live forecast client.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) *client.OpenWeatherClient {
	t.Helper()
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationCache returns the configured cache backend, falling back to in-memory when
// memcached is unreachable. The cleanup func is registered with t.
func SetupIntegrationCache(t *testing.T, cfg IntegrationTestConfig) cache.Cache {
	t.Helper()
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2, time.Hour)
		if err == nil {
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("using memcached at %s", cfg.MemcachedAddr)
			return mc
		}
		t.Logf("memcached not available (%v), using in-memory cache", err)
	}
	return cache.NewInMemoryCache(time.Hour)
}

// SetupIntegrationService wires a live client and cache into a forecast service.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.ForecastService, *client.OpenWeatherClient) {
	t.Helper()
	c := SetupIntegrationClient(t, cfg)
	svc := service.NewForecastService(c, SetupIntegrationCache(t, cfg), 5*time.Minute, time.Hour, true, 10*time.Second)
	return svc, c
}
