package gateway

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

const defaultRequestsPerMinute = 60

// ClientRateLimiter implements sliding window rate limiting per client
type ClientRateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	requests          []time.Time
	now               func() time.Time
}

// NewClientRateLimiter creates a rate limiter. Limits below 1 use the default.
func NewClientRateLimiter(requestsPerMinute int) *ClientRateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
	}
}

// Allow records a request and reports whether it fits in the window
func (r *ClientRateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.requests) >= r.requestsPerMinute {
		return false
	}

	r.requests = append(r.requests, now)
	return true
}

// Count returns the number of requests in the current window
func (r *ClientRateLimiter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return len(r.requests)
}

func (r *ClientRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	r.requests = lo.Filter(r.requests, func(t time.Time, _ int) bool {
		return t.After(cutoff)
	})
}
