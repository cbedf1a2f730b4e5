package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows a limited number of trial requests to test recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker rejects a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// Option customizes the breaker.
type Option func(*gobreaker.Settings)

// WithName names the breaker in state change callbacks.
func WithName(name string) Option {
	return func(s *gobreaker.Settings) { s.Name = name }
}

// WithStateChange registers a callback for state transitions.
func WithStateChange(fn func(name string, from, to State)) Option {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			fn(name, fromGobreaker(from), fromGobreaker(to))
		}
	}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker[interface{}]
}

// New creates a breaker backed by gobreaker.
// failureThreshold: consecutive failures that open the circuit.
// successThreshold: requests allowed through while half-open; that many consecutive successes close it.
// timeout: how long the circuit stays open before going half-open.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	settings := gobreaker.Settings{
		Name:        "default",
		MaxRequests: successThreshold,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker[interface{}](settings)}
}

// Execute runs req through the breaker. Rejections are reported as ErrCircuitOpen.
func (b *breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(req)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return res, err
}

// State returns the current state.
func (b *breaker) State() State {
	return fromGobreaker(b.cb.State())
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return Open
	case gobreaker.StateHalfOpen:
		return HalfOpen
	default:
		return Closed
	}
}
