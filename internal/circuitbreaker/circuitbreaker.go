package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned by Call while the circuit rejects requests.
var ErrOpen = errors.New("circuit breaker open")

// State is the circuit breaker state (Closed, Open, HalfOpen).
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Config holds circuit breaker parameters.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open probes that must succeed to close it.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing.
	Timeout       time.Duration
	Component     string
	OnStateChange func(from, to State) // optional, for metrics
	// IsFailure decides which errors count against the circuit. Defaults to every non-nil error.
	IsFailure func(error) bool
}

// CircuitBreaker protects upstream calls by opening after repeated failures
// and allowing probe requests in half-open state.
type CircuitBreaker struct {
	cb        *gobreaker.CircuitBreaker
	isFailure func(error) bool
}

// passthrough carries an error that must reach the caller without tripping the circuit.
type passthrough struct{ err error }

// New creates a new CircuitBreaker with the given config.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	threshold := uint32(cfg.FailureThreshold)
	settings := gobreaker.Settings{
		Name:        cfg.Component,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	if cfg.OnStateChange != nil {
		onChange := cfg.OnStateChange
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			onChange(fromGobreaker(from), fromGobreaker(to))
		}
	}
	return &CircuitBreaker{
		cb:        gobreaker.NewCircuitBreaker(settings),
		isFailure: cfg.IsFailure,
	}
}

// Call runs fn when the circuit allows it. While open (or while half-open probes are
// exhausted) it returns ErrOpen without calling fn.
func (c *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		err := fn()
		if err != nil && !c.isFailure(err) {
			return passthrough{err: err}, nil
		}
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if err != nil {
		return err
	}
	if p, ok := res.(passthrough); ok {
		return p.err
	}
	return nil
}

// State returns the current state (for metrics).
func (c *CircuitBreaker) State() State {
	return fromGobreaker(c.cb.State())
}
