package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

type mockForecastFetcher struct {
	mu    sync.Mutex
	seen  []string
	calls int32
	err   error
}

func (m *mockForecastFetcher) GetForecast(ctx context.Context, location string) (models.Forecast, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	m.seen = append(m.seen, location)
	m.mu.Unlock()
	if m.err != nil {
		return models.Forecast{}, m.err
	}
	return models.Forecast{Location: location}, nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockForecastFetcher{}
	warmer := NewCacheWarmer(fetcher, nil, 0)

	if err := warmer.Warm(context.Background(), []string{"seattle", "boston"}); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if n := atomic.LoadInt32(&fetcher.calls); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestCacheWarmer_Warm_EmptyLocations(t *testing.T) {
	warmer := NewCacheWarmer(&mockForecastFetcher{}, nil, 0)
	if err := warmer.Warm(context.Background(), nil); err != nil {
		t.Fatalf("Warm(nil) error = %v, want nil", err)
	}
}

func TestCacheWarmer_Warm_FetcherError(t *testing.T) {
	apiDown := errors.New("api down")
	warmer := NewCacheWarmer(&mockForecastFetcher{err: apiDown}, nil, 0)

	err := warmer.Warm(context.Background(), []string{"seattle"})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil")
	}
	if !errors.Is(err, apiDown) {
		t.Errorf("Warm() error = %v, want wrapping %v", err, apiDown)
	}
	if !strings.Contains(err.Error(), "warm seattle") {
		t.Errorf("Warm() error = %q, want location in message", err)
	}
}

func TestCacheWarmer_StartRunsImmediatelyAndStops(t *testing.T) {
	fetcher := &mockForecastFetcher{}
	warmer := NewCacheWarmer(fetcher, nil, time.Second)

	if err := warmer.Start([]string{"seattle"}, time.Hour); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := warmer.Start([]string{"seattle"}, time.Hour); err == nil {
		t.Error("second Start() error = nil, want already started")
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&fetcher.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	warmer.Stop()
	warmer.Stop()

	if atomic.LoadInt32(&fetcher.calls) == 0 {
		t.Error("Start() did not run an initial warm")
	}
}

func TestCacheWarmer_StartValidation(t *testing.T) {
	warmer := NewCacheWarmer(&mockForecastFetcher{}, nil, 0)
	if err := warmer.Start(nil, time.Minute); err != nil {
		t.Errorf("Start(no locations) error = %v, want nil", err)
	}
	if err := warmer.Start([]string{"seattle"}, 0); err == nil {
		t.Error("Start(interval=0) error = nil, want error")
	}
	warmer.Stop()
}
