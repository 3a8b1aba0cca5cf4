package fyers

import (
	"sync"
	"time"

	"fyers-orb-bot/internal/metrics"
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures inside the window
	// before the circuit opens.
	FailureThreshold int
	// FailureWindow is how far back failures count toward the threshold.
	FailureWindow time.Duration
	// Pause is how long the circuit stays open once tripped.
	Pause time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		FailureWindow:    60 * time.Second,
		Pause:            120 * time.Second,
	}
}

// CircuitBreaker pauses outbound broker calls after sustained failures.
// Failures are counted inside a sliding window; reaching the threshold
// opens the circuit for a fixed pause and clears the window. A success
// resets the failure count but never closes an already-open circuit
// early; openedUntil is monotonically non-decreasing while failures
// accumulate.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	failures    []time.Time
	openedUntil time.Time

	now func() time.Time // injectable clock for tests
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
	}
}

// IsOpen reports whether the circuit is currently rejecting calls.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	open := cb.now().Before(cb.openedUntil)
	if !open {
		metrics.CircuitOpen.Set(0)
	}
	return open
}

// Remaining returns how long until the circuit closes, zero if closed.
func (cb *CircuitBreaker) Remaining() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	remaining := cb.openedUntil.Sub(cb.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordFailure appends a failure timestamp, evicts entries older than
// the window, and opens the circuit when the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.failures = append(cb.failures, now)
	cb.evict(now)

	if len(cb.failures) >= cb.config.FailureThreshold {
		cb.openedUntil = now.Add(cb.config.Pause)
		cb.failures = nil
		metrics.CircuitOpen.Set(1)
	}
}

// RecordSuccess clears failure bookkeeping. It does not close an
// already-open circuit early.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = nil
}

// Reset closes the circuit and clears all bookkeeping.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = nil
	cb.openedUntil = time.Time{}
	metrics.CircuitOpen.Set(0)
}

// FailureCount returns the failures currently inside the window.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.evict(cb.now())
	return len(cb.failures)
}

func (cb *CircuitBreaker) evict(now time.Time) {
	cutoff := now.Add(-cb.config.FailureWindow)
	i := 0
	for i < len(cb.failures) && cb.failures[i].Before(cutoff) {
		i++
	}
	cb.failures = cb.failures[i:]
}
