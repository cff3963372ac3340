// Package lifecycle holds process-wide state that outlives any single request.
package lifecycle

import "sync/atomic"

var draining atomic.Bool

// SetShuttingDown marks the process as draining. /health reports shutting-down (503) while set,
// so load balancers stop routing new forecast requests here.
func SetShuttingDown(v bool) {
	draining.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return draining.Load()
}
