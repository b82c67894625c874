package utils

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when a call is shed without being attempted.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// CircuitBreaker sheds calls to a checkout provider once the failure ratio
// over the current window crosses the trip threshold. After a cooldown a
// limited number of probe calls go through; one success closes the breaker,
// one failure reopens it.
type CircuitBreaker struct {
	name      string
	minVolume uint32
	tripRatio float64
	window    time.Duration
	cooldown  time.Duration
	maxProbes uint32

	mu       sync.Mutex
	state    State
	requests uint32
	failures uint32
	deadline time.Time
}

func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		minVolume: 100,
		tripRatio: 0.6,
		window:    60 * time.Second,
		cooldown:  60 * time.Second,
		maxProbes: 5,
		state:     StateClosed,
		deadline:  time.Now().Add(60 * time.Second),
	}
}

func (cb *CircuitBreaker) Execute(ctx context.Context, req func() (any, error)) (any, error) {
	if err := cb.allow(time.Now()); err != nil {
		return nil, err
	}

	result, err := req()
	cb.record(err == nil)
	return result, err
}

func (cb *CircuitBreaker) allow(now time.Time) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance(now)

	switch cb.state {
	case StateOpen:
		return ErrBreakerOpen
	case StateHalfOpen:
		if cb.requests >= cb.maxProbes {
			return ErrBreakerOpen
		}
	}

	cb.requests++
	return nil
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		if cb.state == StateHalfOpen {
			cb.reset(StateClosed, time.Now())
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.tripped() {
		cb.reset(StateOpen, time.Now())
		slog.Warn("circuit breaker opened", "name", cb.name)
	}
}

func (cb *CircuitBreaker) tripped() bool {
	return cb.requests >= cb.minVolume &&
		float64(cb.failures)/float64(cb.requests) >= cb.tripRatio
}

// advance rolls the counting window while closed and moves an expired open
// breaker to half-open.
func (cb *CircuitBreaker) advance(now time.Time) {
	switch cb.state {
	case StateClosed:
		if cb.deadline.Before(now) {
			cb.reset(StateClosed, now)
		}
	case StateOpen:
		if cb.deadline.Before(now) {
			cb.reset(StateHalfOpen, now)
		}
	}
}

func (cb *CircuitBreaker) reset(state State, now time.Time) {
	cb.state = state
	cb.requests = 0
	cb.failures = 0

	switch state {
	case StateClosed:
		cb.deadline = now.Add(cb.window)
	case StateOpen:
		cb.deadline = now.Add(cb.cooldown)
	default:
		cb.deadline = time.Time{}
	}
}
