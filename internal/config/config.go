package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML, .env and the process environment.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration
	ForecastCount     int

	RequestTimeout time.Duration

	CacheBackend  string // "in_memory" or "memcached"
	CacheTTL      time.Duration
	StaleCacheTTL time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	CoalesceEnabled bool
	CoalesceTimeout time.Duration

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout       time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	KeyCheckInterval     time.Duration
	DegradedRetryInitial time.Duration
	DegradedRetryMax     time.Duration

	WarmingEnabled   bool
	WarmingInterval  time.Duration
	WarmingTimeout   time.Duration
	WarmingLocations []string

	TrackedLocations []string

	LocationMinLength int
	LocationMaxLength int
	SearchMaxLength   int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL           string `yaml:"url"`
		Timeout       string `yaml:"timeout"`
		ForecastCount int    `yaml:"forecast_count"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		StaleTTL  string `yaml:"stale_ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Coalesce struct {
		Enabled *bool  `yaml:"enabled"`
		Timeout string `yaml:"timeout"`
	} `yaml:"coalesce"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
		KeyCheckInterval     string `yaml:"key_check_interval"`
		DegradedRetryInitial string `yaml:"degraded_retry_initial"`
		DegradedRetryMax     string `yaml:"degraded_retry_max"`
	} `yaml:"health"`

	Warming struct {
		Enabled   bool     `yaml:"enabled"`
		Interval  string   `yaml:"interval"`
		Timeout   string   `yaml:"timeout"`
		Locations []string `yaml:"locations"`
	} `yaml:"warming"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`

	Validation struct {
		LocationMinLength int `yaml:"location_min_length"`
		LocationMaxLength int `yaml:"location_max_length"`
		SearchMaxLength   int `yaml:"search_max_length"`
	} `yaml:"validation"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// A .env file in the working directory is loaded first; it never overrides variables already
// set. API key comes from WEATHER_API_KEY or the secrets file. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey, err = loadAPIKey(cwd)
	if err != nil {
		return nil, err
	}

	cfg.WeatherAPIURL = strings.TrimRight(fc.WeatherAPI.URL, "/")
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 2*time.Second)
	cfg.ForecastCount = intOr(fc.WeatherAPI.ForecastCount, 56)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.StaleCacheTTL = parseDurationOrZero(fc.Cache.StaleTTL, time.Hour)
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = intOr(fc.Cache.Memcached.MaxIdleConns, 2)

	cfg.CoalesceEnabled = boolOr(fc.Coalesce.Enabled, true)
	cfg.CoalesceTimeout = parseDuration(fc.Coalesce.Timeout, 5*time.Second)

	cfg.RetryAttempts = intOr(fc.Reliability.RetryMaxAttempts, 3)
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = intOr(fc.Reliability.RateLimitRPS, 100)
	cfg.RateLimitBurst = intOr(fc.Reliability.RateLimitBurst, 250)
	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = boolOr(cb.Enabled, true)
	cfg.CircuitBreakerFailureThreshold = intOr(cb.FailureThreshold, 5)
	cfg.CircuitBreakerSuccessThreshold = intOr(cb.SuccessThreshold, 2)
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.InFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Health.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = intOr(fc.Health.OverloadThresholdPct, 80)
	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = intOr(fc.Health.DegradedErrorPct, 5)
	cfg.KeyCheckInterval = parseDuration(fc.Health.KeyCheckInterval, 5*time.Minute)
	cfg.DegradedRetryInitial = parseDuration(fc.Health.DegradedRetryInitial, time.Minute)
	cfg.DegradedRetryMax = parseDuration(fc.Health.DegradedRetryMax, 20*time.Minute)

	cfg.TrackedLocations = fc.Metrics.TrackedLocations
	cfg.WarmingEnabled = fc.Warming.Enabled
	cfg.WarmingInterval = parseDuration(fc.Warming.Interval, 5*time.Minute)
	cfg.WarmingTimeout = parseDuration(fc.Warming.Timeout, 30*time.Second)
	cfg.WarmingLocations = fc.Warming.Locations
	if len(cfg.WarmingLocations) == 0 {
		cfg.WarmingLocations = cfg.TrackedLocations
	}

	cfg.LocationMinLength = intOr(fc.Validation.LocationMinLength, 1)
	cfg.LocationMaxLength = intOr(fc.Validation.LocationMaxLength, 100)
	cfg.SearchMaxLength = intOr(fc.Validation.SearchMaxLength, 100)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAPIKey returns WEATHER_API_KEY, falling back to config/secrets.yaml.
func loadAPIKey(cwd string) (string, error) {
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		return key, nil
	}
	data, err := os.ReadFile(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	if err == nil {
		var sec secretsFile
		if err := yaml.Unmarshal(data, &sec); err != nil {
			return "", fmt.Errorf("parse secrets file: %w", err)
		}
		if sec.WeatherAPIKey != "" {
			return sec.WeatherAPIKey, nil
		}
	}
	return "", fmt.Errorf("WEATHER_API_KEY required (set env, .env or config/secrets.yaml weather_api_key)")
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// validate performs post-load checks. RequestTimeout is raised above WeatherAPITimeout when
// needed so the upstream call can finish inside the request deadline.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.LocationMinLength > cfg.LocationMaxLength {
		return fmt.Errorf("validation.location_min_length (%d) exceeds location_max_length (%d)", cfg.LocationMinLength, cfg.LocationMaxLength)
	}
	if cfg.DegradedRetryMax < cfg.DegradedRetryInitial {
		return fmt.Errorf("health.degraded_retry_max must be at least degraded_retry_initial")
	}
	if cfg.StaleCacheTTL < 0 {
		return fmt.Errorf("cache.stale_ttl must not be negative")
	}
	return nil
}
