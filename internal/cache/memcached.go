package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

const keyPrefix = "forecast:"

// maxRelativeExp is the largest relative expiration memcached accepts; larger values are
// read as absolute unix times.
const maxRelativeExp = 30 * 24 * 60 * 60

// MemcachedCache implements Cache on memcached. Items outlive their TTL by staleRetention so
// GetStale can serve them; freshness is tracked inside the stored envelope.
type MemcachedCache struct {
	client         *memcache.Client
	staleRetention time.Duration
	now            func() time.Time
}

// envelope is the JSON value stored per key.
type envelope struct {
	Forecast  models.Forecast `json:"forecast"`
	StoredAt  time.Time       `json:"storedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int, staleRetention time.Duration) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client, staleRetention: staleRetention, now: time.Now}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(k string) string {
	// memcached keys cannot contain spaces or control characters.
	return keyPrefix + strings.ReplaceAll(k, " ", "_")
}

func (c *MemcachedCache) load(ctx context.Context, key string) (envelope, bool, error) {
	if err := ctx.Err(); err != nil {
		return envelope{}, false, err
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return envelope{}, false, nil
		}
		return envelope{}, false, fmt.Errorf("memcached get: %w", err)
	}
	env, err := decodeEnvelope(item.Value)
	if err != nil {
		return envelope{}, false, err
	}
	return env, true, nil
}

// Get implements Cache.Get. Returns false, nil on a miss or an expired envelope.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	env, ok, err := c.load(ctx, key)
	if err != nil || !ok {
		return models.Forecast{}, false, err
	}
	if c.now().After(env.ExpiresAt) {
		return models.Forecast{}, false, nil
	}
	return env.Forecast, true, nil
}

// GetStale implements Cache.GetStale.
func (c *MemcachedCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Forecast, bool, error) {
	env, ok, err := c.load(ctx, key)
	if err != nil || !ok {
		return models.Forecast{}, false, err
	}
	if c.now().Sub(env.Forecast.FetchedAt) > maxAge {
		return models.Forecast{}, false, nil
	}
	return env.Forecast, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := c.now()
	raw, err := json.Marshal(envelope{Forecast: value, StoredAt: now, ExpiresAt: now.Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expirationSeconds(ttl + c.staleRetention),
	}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return env, nil
}

// expirationSeconds converts a lifetime to a memcached relative expiration.
func expirationSeconds(d time.Duration) int32 {
	sec := int64(d / time.Second)
	if sec <= 0 || sec > maxRelativeExp {
		return 3600 // fallback 1h if invalid
	}
	return int32(sec)
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
