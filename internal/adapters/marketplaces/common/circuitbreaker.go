// Package common holds the cross-cutting concerns every marketplace
// adapter wraps its HTTP calls in: a circuit breaker, a rate limiter, and
// request-id correlation.
package common

import (
	"errors"
	"sync"
	"time"

	"github.com/kvell/invsync/internal/infrastructure/clock"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// ErrCircuitOpen is returned by Call while the breaker is open.
var ErrCircuitOpen = errors.New("marketplace: circuit breaker open")

// CircuitBreaker trips after maxFailures consecutive failures and blocks
// calls until timeout elapses, then allows one trial call before fully
// closing again.
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	state           CircuitState
	failureCount    int
	lastFailureTime time.Time
	mu              sync.RWMutex
	clock           clock.Clock
}

// NewCircuitBreaker builds a CircuitBreaker. A nil clock uses the system
// clock.
func NewCircuitBreaker(maxFailures int, timeout time.Duration, c clock.Clock) *CircuitBreaker {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &CircuitBreaker{maxFailures: maxFailures, timeout: timeout, clock: c}
}

// Call executes fn, protected by the breaker. fn runs without the lock
// held so a slow call never blocks concurrent state reads.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		if cb.clock.Now().Sub(cb.lastFailureTime) >= cb.timeout {
			cb.state = CircuitHalfOpen
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailureTime = cb.clock.Now()
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}
	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
	}
}

// State reports the current breaker state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Reset forces the breaker back to closed, for tests.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitClosed
	cb.failureCount = 0
}
