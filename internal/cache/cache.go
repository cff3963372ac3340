package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// Cache stores forecasts by normalized location key.
// Get returns only fresh entries. GetStale also returns expired entries whose FetchedAt is
// within maxAge, for serving when the upstream is failing.
type Cache interface {
	Get(ctx context.Context, key string) (models.Forecast, bool, error)
	GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Forecast, bool, error)
	Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error
}

// InMemoryCache implements Cache with a mutex-guarded map. Expired entries are kept for
// staleRetention so GetStale can still find them, then dropped on access.
type InMemoryCache struct {
	mu             sync.RWMutex
	data           map[string]cacheEntry
	staleRetention time.Duration
	now            func() time.Time
}

type cacheEntry struct {
	value     models.Forecast
	expiresAt time.Time
}

// NewInMemoryCache creates an in-memory cache. staleRetention 0 drops entries as soon as they expire.
func NewInMemoryCache(staleRetention time.Duration) *InMemoryCache {
	return &InMemoryCache{
		data:           make(map[string]cacheEntry),
		staleRetention: staleRetention,
		now:            time.Now,
	}
}

// Get returns (forecast, true, nil) on a fresh hit and (zero, false, nil) on a miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	now := c.now()
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Forecast{}, false, nil
	}
	if now.After(entry.expiresAt) {
		c.evictIfPastRetention(key, now)
		return models.Forecast{}, false, nil
	}
	return entry.value, true, nil
}

// GetStale returns the entry, fresh or expired, when its FetchedAt is no older than maxAge.
func (c *InMemoryCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Forecast, bool, error) {
	now := c.now()
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.Forecast{}, false, nil
	}
	if now.Sub(entry.value.FetchedAt) > maxAge {
		c.evictIfPastRetention(key, now)
		return models.Forecast{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores a forecast that expires after ttl.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

// Len returns the number of retained entries, fresh or stale.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *InMemoryCache) evictIfPastRetention(key string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.data[key]; ok && now.After(entry.expiresAt.Add(c.staleRetention)) {
		delete(c.data, key)
	}
}
