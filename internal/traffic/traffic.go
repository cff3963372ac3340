// Package traffic keeps sliding windows of request outcomes. Health uses them to decide when
// the service is overloaded (too many requests or denials) or degraded (too many failures).
package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept regardless of the windows queried.
const retention = 5 * time.Minute

var defaultTracker = NewTracker()

// RecordSuccess records a successful request outcome.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a failed request outcome (upstream error, timeout, etc.).
func RecordError() { defaultTracker.Record(Error) }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.Record(Denied) }

// RequestCount returns the number of outcomes (success + error + denied) within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.Count(Denied, window) }

// ErrorRate returns (errorCount, totalCount) within the window. Denials are excluded.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears all recorded outcomes. For tests only.
func Reset() { defaultTracker.Reset() }

// Outcome classifies a finished request.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied
	numOutcomes
)

// Tracker maintains one timestamp window per Outcome.
type Tracker struct {
	mu    sync.Mutex
	times [numOutcomes][]time.Time
	now   func() time.Time
}

// NewTracker returns an empty Tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record appends an outcome at the current time and prunes expired entries.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.times[o] = append(t.times[o], now)
	t.pruneLocked(now)
}

// Count returns the number of outcomes of kind o within the window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.times[o], t.now().Add(-window))
}

// RequestCount returns the number of outcomes of any kind within the window.
func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	n := 0
	for o := range t.times {
		n += countSince(t.times[o], cutoff)
	}
	return n
}

// ErrorRate returns (errorCount, successCount+errorCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	errors = countSince(t.times[Error], cutoff)
	return errors, errors + countSince(t.times[Success], cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for o := range t.times {
		t.times[o] = nil
	}
}

// countSince counts timestamps not before cutoff. Slices are append-ordered, so scan from the end.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for i := len(times) - 1; i >= 0 && !times[i].Before(cutoff); i-- {
		n++
	}
	return n
}

// pruneLocked drops outcomes older than retention. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	for o, times := range t.times {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			t.times[o] = append(times[:0], times[i:]...)
		}
	}
}
