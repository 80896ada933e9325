package middleware

import (
	"errors"
	"sync"
)

// ErrRateLimitExceeded indicates rate limit has been exceeded
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// RateLimiter caps how many gateway calls a run may issue. The task runner
// fans out concurrently, so the counter is mutex-protected.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	counter     int
}

// NewRateLimiter creates a rate limiting middleware
func NewRateLimiter(maxRequests int) *RateLimiter {
	return &RateLimiter{maxRequests: maxRequests}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute checks rate limit
func (m *RateLimiter) Execute(ctx *Context, next Handler) error {
	m.mu.Lock()
	if m.counter >= m.maxRequests {
		m.mu.Unlock()
		return ErrRateLimitExceeded
	}
	m.counter++
	m.mu.Unlock()
	return next(ctx)
}

// Reset resets the rate limiter counter
func (m *RateLimiter) Reset() {
	m.mu.Lock()
	m.counter = 0
	m.mu.Unlock()
}

// Counter returns current request count
func (m *RateLimiter) Counter() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter
}
