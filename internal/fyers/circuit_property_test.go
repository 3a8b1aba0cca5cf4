package fyers

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// fakeClock is a manually advanced clock for breaker tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, window, pause time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		FailureWindow:    window,
		Pause:            pause,
	})
	cb.now = clock.now
	return cb, clock
}

// Property: once threshold failures land inside the window the circuit
// opens, stays open for the full pause, and closes after it.
func TestPropertyCircuitOpensAtThresholdAndHonorsPause(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("threshold failures open the circuit for the pause", prop.ForAll(
		func(threshold int, pauseSec int) bool {
			pause := time.Duration(pauseSec) * time.Second
			cb, clock := newTestBreaker(threshold, time.Minute, pause)

			for i := 0; i < threshold-1; i++ {
				cb.RecordFailure()
				if cb.IsOpen() {
					t.Logf("opened early at failure %d of threshold %d", i+1, threshold)
					return false
				}
			}

			cb.RecordFailure()
			if !cb.IsOpen() {
				t.Logf("did not open at threshold %d", threshold)
				return false
			}

			clock.advance(pause - time.Millisecond)
			if !cb.IsOpen() {
				t.Log("closed before the pause elapsed")
				return false
			}

			clock.advance(2 * time.Millisecond)
			if cb.IsOpen() {
				t.Log("still open after the pause elapsed")
				return false
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(1, 300),
	))

	properties.TestingRun(t)
}

// Property: a success clears the failure count but never closes an
// already-open circuit early.
func TestPropertySuccessNeverClosesOpenCircuit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("success resets count, not an open circuit", prop.ForAll(
		func(threshold int, successes int) bool {
			cb, clock := newTestBreaker(threshold, time.Minute, 2*time.Minute)

			for i := 0; i < threshold; i++ {
				cb.RecordFailure()
			}
			if !cb.IsOpen() {
				return false
			}

			for i := 0; i < successes; i++ {
				cb.RecordSuccess()
			}
			if !cb.IsOpen() {
				t.Log("success closed an open circuit early")
				return false
			}

			clock.advance(2*time.Minute + time.Millisecond)
			return !cb.IsOpen()
		},
		gen.IntRange(1, 8),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func TestCircuitWindowEviction(t *testing.T) {
	cb, clock := newTestBreaker(3, time.Minute, 2*time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()

	// Old failures fall out of the window; a third one alone must not
	// trip the breaker.
	clock.advance(61 * time.Second)
	cb.RecordFailure()

	if cb.IsOpen() {
		t.Fatal("stale failures outside the window tripped the circuit")
	}
	if got := cb.FailureCount(); got != 1 {
		t.Fatalf("FailureCount = %d, want 1", got)
	}
}

func TestCircuitSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute, 2*time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if got := cb.FailureCount(); got != 0 {
		t.Fatalf("FailureCount after success = %d, want 0", got)
	}

	// Two more failures must not trip a threshold of three.
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.IsOpen() {
		t.Fatal("circuit opened despite the success reset")
	}
}

func TestCircuitReset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute, 2*time.Minute)

	cb.RecordFailure()
	if !cb.IsOpen() {
		t.Fatal("circuit should be open")
	}

	cb.Reset()
	if cb.IsOpen() {
		t.Fatal("Reset did not close the circuit")
	}
	if cb.Remaining() != 0 {
		t.Fatal("Remaining should be zero after Reset")
	}
}
