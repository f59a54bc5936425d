package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// MultiLimiter manages multiple rate limiters keyed by call class
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter.
// requestsPerSecond <= 0 disables limiting for that name.
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	m.limiters[name] = rate.NewLimiter(limit, burst)
}

// Wait blocks until the limiter allows an event
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Limiter names
const (
	LimiterRead  = "youtube_read"
	LimiterWrite = "youtube_write"
	LimiterFeed  = "youtube_feed"
)

// NewDefaultLimiter creates a limiter with default rates
func NewDefaultLimiter() *MultiLimiter {
	return New(10, 5)
}

// New creates a limiter with the given read and write rates.
func New(readsPerSecond, writesPerSecond float64) *MultiLimiter {
	m := NewMultiLimiter()

	// Reads: list pages, lookups
	m.AddLimiter(LimiterRead, readsPerSecond, 5)

	// Writes: one playlist insert at a time
	m.AddLimiter(LimiterWrite, writesPerSecond, 1)

	// Public RSS feeds: be polite, 1 per second
	m.AddLimiter(LimiterFeed, 1, 3)

	return m
}
