// Package degraded tracks whether the upstream API key is usable without calling upstream on
// every health probe.
package degraded

import (
	"context"
	"sync"
	"time"
)

// ValidateFunc checks the upstream API key. Returns nil when the key is accepted.
type ValidateFunc func(ctx context.Context) error

// KeyMonitor caches the result of ValidateFunc. An accepted key is rechecked every okInterval.
// A rejected key is retried on a Fibonacci schedule starting at retryInitial and capped at
// retryMax (1m, 2m, 3m, 5m, 8m, 13m, ...).
type KeyMonitor struct {
	validate     ValidateFunc
	okInterval   time.Duration
	retryInitial time.Duration
	retryMax     time.Duration
	now          func() time.Time

	mu        sync.Mutex
	checked   bool
	lastErr   error
	nextCheck time.Time
	failures  int
}

// NewKeyMonitor returns a monitor over validate. Non-positive intervals fall back to 5m, 1m and 20m.
func NewKeyMonitor(validate ValidateFunc, okInterval, retryInitial, retryMax time.Duration) *KeyMonitor {
	if okInterval <= 0 {
		okInterval = 5 * time.Minute
	}
	if retryInitial <= 0 {
		retryInitial = time.Minute
	}
	if retryMax < retryInitial {
		retryMax = 20 * time.Minute
	}
	return &KeyMonitor{
		validate:     validate,
		okInterval:   okInterval,
		retryInitial: retryInitial,
		retryMax:     retryMax,
		now:          time.Now,
	}
}

// ValidateAPIKey returns the cached result, revalidating when the next check is due.
// Concurrent callers while a check runs wait for it instead of issuing their own.
func (m *KeyMonitor) ValidateAPIKey(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.checked && now.Before(m.nextCheck) {
		return m.lastErr
	}

	err := m.validate(ctx)
	if err != nil && ctx.Err() != nil {
		// Caller gave up; keep the previous answer and try again next time.
		if m.checked {
			return m.lastErr
		}
		return err
	}

	m.checked = true
	m.lastErr = err
	if err == nil {
		m.failures = 0
		m.nextCheck = now.Add(m.okInterval)
		return nil
	}
	m.nextCheck = now.Add(fibDelay(m.retryInitial, m.retryMax, m.failures))
	m.failures++
	return err
}

// fibDelay returns the n-th (0-based) delay of initial×{1, 2, 3, 5, 8, ...}, capped at max.
func fibDelay(initial, max time.Duration, n int) time.Duration {
	a, b := 1, 2
	for i := 0; i < n; i++ {
		a, b = b, a+b
		if time.Duration(a)*initial >= max {
			return max
		}
	}
	d := time.Duration(a) * initial
	if d > max {
		return max
	}
	return d
}
