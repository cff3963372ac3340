package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// DefaultForecastCount is the number of three-hourly samples requested per forecast (seven days).
const DefaultForecastCount = 56

// Upstream endpoint names, also used as metric labels.
const (
	endpointForecast = "forecast"
	endpointFind     = "find"
	endpointWeather  = "weather"
)

// WeatherClient fetches forecasts and location data from the upstream weather API.
type WeatherClient interface {
	GetForecast(ctx context.Context, location string) (models.Forecast, error)
	FindLocations(ctx context.Context, query string) ([]models.LocationSuggestion, error)
	LocationByCoordinates(ctx context.Context, lat, lon float64) (string, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrLocationNotFound = errors.New("location not found")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrRateLimited      = errors.New("rate limited")
	ErrCircuitOpen      = errors.New("upstream circuit open")
)

// OpenWeatherClient talks to the OpenWeatherMap 2.5 API. apiURL is the API root,
// e.g. https://api.openweathermap.org/data/2.5; endpoint paths are appended to it.
type OpenWeatherClient struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	forecastCount  int
	breaker        *circuitbreaker.CircuitBreaker
}

func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, apiURL, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

func NewOpenWeatherClientWithRetry(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		apiURL:         strings.TrimRight(apiURL, "/"),
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		forecastCount:  DefaultForecastCount,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetForecastCount overrides the number of samples requested per forecast. Values < 1 are ignored.
func (c *OpenWeatherClient) SetForecastCount(n int) {
	if n > 0 {
		c.forecastCount = n
	}
}

// SetCircuitBreaker routes every upstream attempt through cb. Nil disables the breaker.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Pressure  float64 `json:"pressure"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Weather    []weatherCondition `json:"weather"`
		Wind       *struct {
			Speed *float64 `json:"speed"`
		} `json:"wind"`
		Visibility *float64 `json:"visibility"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"`
		Sunrise  int64  `json:"sunrise"`
		Sunset   int64  `json:"sunset"`
	} `json:"city"`
}

type weatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type findResponse struct {
	List []struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
	} `json:"list"`
}

type weatherResponse struct {
	Name string `json:"name"`
}

// GetForecast fetches the three-hourly forecast for a city name.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, location string) (models.Forecast, error) {
	params := url.Values{}
	params.Set("q", location)
	params.Set("cnt", strconv.Itoa(c.forecastCount))

	var apiResp forecastResponse
	if err := c.get(ctx, endpointForecast, params, &apiResp); err != nil {
		return models.Forecast{}, err
	}
	return c.mapForecast(apiResp, location), nil
}

// FindLocations returns places whose name matches query. An empty result is not an error.
func (c *OpenWeatherClient) FindLocations(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	params := url.Values{}
	params.Set("q", query)

	var apiResp findResponse
	if err := c.get(ctx, endpointFind, params, &apiResp); err != nil {
		return nil, err
	}
	out := make([]models.LocationSuggestion, 0, len(apiResp.List))
	for _, item := range apiResp.List {
		if item.Name == "" {
			continue
		}
		out = append(out, models.LocationSuggestion{Name: item.Name, Country: item.Sys.Country})
	}
	return out, nil
}

// LocationByCoordinates returns the name of the place at (lat, lon).
func (c *OpenWeatherClient) LocationByCoordinates(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var apiResp weatherResponse
	if err := c.get(ctx, endpointWeather, params, &apiResp); err != nil {
		return "", err
	}
	if apiResp.Name == "" {
		return "", fmt.Errorf("%w: no place at %g,%g", ErrLocationNotFound, lat, lon)
	}
	return apiResp.Name, nil
}

// get performs a GET against endpoint with retries, decoding the JSON body into out.
func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.attempt(ctx, endpoint, params, out)
		if err == nil {
			return nil
		}

		lastErr = err
		if ctx.Err() != nil || !c.isRetryable(err) {
			observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
			return err
		}
	}

	observability.UpstreamErrorsTotal.WithLabelValues(string(CategorizeError(lastErr))).Inc()
	return fmt.Errorf("exhausted retries: %w", lastErr)
}

// attempt runs one upstream call, through the circuit breaker when one is set.
func (c *OpenWeatherClient) attempt(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.breaker == nil {
		return c.callAPI(ctx, endpoint, params, out)
	}
	err := c.breaker.Call(ctx, func() error {
		return c.callAPI(ctx, endpoint, params, out)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint string, params url.Values, out any) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpoint, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(endpoint, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || isNetTimeout(err) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *OpenWeatherClient) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpoint string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.apiURL + "/" + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: upstream rejected key", ErrInvalidAPIKey)
	case http.StatusNotFound, http.StatusBadRequest:
		return fmt.Errorf("%w: HTTP %d", ErrLocationNotFound, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

// mapForecast converts the upstream payload. Samples keep upstream order; kelvin values are not converted.
func (c *OpenWeatherClient) mapForecast(apiResp forecastResponse, location string) models.Forecast {
	samples := make([]models.Sample, 0, len(apiResp.List))
	for _, item := range apiResp.List {
		s := models.Sample{
			Timestamp:   item.Dt,
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			TempMin:     item.Main.TempMin,
			TempMax:     item.Main.TempMax,
			Humidity:    item.Main.Humidity,
			Pressure:    item.Main.Pressure,
			Visibility:  item.Visibility,
		}
		if item.Wind != nil {
			s.WindSpeed = item.Wind.Speed
		}
		if len(item.Weather) > 0 {
			w := item.Weather[0]
			s.ConditionID = w.ID
			s.ConditionIcon = w.Icon
			s.Description = w.Description
			if s.Description == "" {
				s.Description = w.Main
			}
		}
		samples = append(samples, s)
	}

	name := apiResp.City.Name
	if name == "" {
		name = location
	}

	return models.Forecast{
		Location: strings.ToLower(strings.TrimSpace(location)),
		City: models.City{
			Name:           name,
			Country:        apiResp.City.Country,
			TimezoneOffset: apiResp.City.Timezone,
			Sunrise:        apiResp.City.Sunrise,
			Sunset:         apiResp.City.Sunset,
		},
		Samples:   samples,
		FetchedAt: time.Now().UTC(),
	}
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a single forecast request (no retries, no breaker) to confirm the key is active.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "London")
	params.Set("cnt", "1")
	req, err := c.buildRequest(ctx, endpointForecast, params)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
