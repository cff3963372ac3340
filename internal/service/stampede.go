package service

import (
	"sync"
)

// stampedeTracker counts in-progress cache misses per location. A count above 1 means several
// requests missed the same forecast at once (typically right after it expired).
type stampedeTracker struct {
	mu           sync.Mutex
	activeMisses map[string]int // key -> misses in progress
}

func newStampedeTracker() *stampedeTracker {
	return &stampedeTracker{
		activeMisses: make(map[string]int),
	}
}

// RecordMiss registers a miss for key and returns the number now in progress.
// Pair every call with a deferred RecordHit(key).
func (st *stampedeTracker) RecordMiss(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.activeMisses[key]++
	return st.activeMisses[key]
}

// RecordHit marks one miss for key as resolved.
func (st *stampedeTracker) RecordHit(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if count, ok := st.activeMisses[key]; ok && count > 0 {
		st.activeMisses[key]--
		if st.activeMisses[key] == 0 {
			delete(st.activeMisses, key)
		}
	}
}
