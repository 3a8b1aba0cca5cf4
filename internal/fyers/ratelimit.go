package fyers

import (
	"context"
	"sync"
	"time"
)

// minPollInterval bounds how fast Acquire re-checks window capacity.
const minPollInterval = 10 * time.Millisecond

// RateLimiter enforces per-second and per-minute sliding-window caps on
// outbound broker calls. Acquire blocks without busy-spinning until both
// windows have capacity.
type RateLimiter struct {
	perSecond int
	perMinute int

	mu          sync.Mutex
	secondCalls []time.Time
	minuteCalls []time.Time
}

// NewRateLimiter creates a rate limiter with the given window caps.
func NewRateLimiter(perSecond, perMinute int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if perMinute <= 0 {
		perMinute = 200
	}
	return &RateLimiter{
		perSecond: perSecond,
		perMinute: perMinute,
	}
}

// Acquire blocks until both windows have capacity, then records the call.
// It returns early with the context error if ctx is cancelled.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		r.evict(now)

		if len(r.secondCalls) < r.perSecond && len(r.minuteCalls) < r.perMinute {
			r.secondCalls = append(r.secondCalls, now)
			r.minuteCalls = append(r.minuteCalls, now)
			r.mu.Unlock()
			return nil
		}

		wait := r.waitTime(now)
		r.mu.Unlock()

		if wait < minPollInterval {
			wait = minPollInterval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RateLimiter) evict(now time.Time) {
	for len(r.secondCalls) > 0 && now.Sub(r.secondCalls[0]) >= time.Second {
		r.secondCalls = r.secondCalls[1:]
	}
	for len(r.minuteCalls) > 0 && now.Sub(r.minuteCalls[0]) >= time.Minute {
		r.minuteCalls = r.minuteCalls[1:]
	}
}

func (r *RateLimiter) waitTime(now time.Time) time.Duration {
	var waitSecond, waitMinute time.Duration

	if len(r.secondCalls) >= r.perSecond {
		waitSecond = time.Second - now.Sub(r.secondCalls[0])
	}
	if len(r.minuteCalls) >= r.perMinute {
		waitMinute = time.Minute - now.Sub(r.minuteCalls[0])
	}

	if waitMinute > waitSecond {
		return waitMinute
	}
	return waitSecond
}

// Pending returns the current window occupancy, for diagnostics.
func (r *RateLimiter) Pending() (second, minute int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evict(time.Now())
	return len(r.secondCalls), len(r.minuteCalls)
}
