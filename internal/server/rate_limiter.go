// Package server implements a token bucket rate limiter for per-connection
// throttling that protects the router from abusive senders.
package server

import (
	"math"
	"sync"
	"time"
)

// rateLimiter is a token bucket granting Burst messages per RefillInterval.
// Each connection carries its own instance, so one noisy sender cannot
// starve the others.
type rateLimiter struct {
	mu        sync.Mutex
	tokens    float64
	capacity  float64
	rate      float64
	lastCheck time.Time
}

// newRateLimiter builds a full bucket from the rate-limit settings. The
// config is expected sanitized; non-positive values are clamped here anyway
// so a directly constructed limiter cannot divide by zero.
func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	capacity := float64(burst)
	return &rateLimiter{
		tokens:    capacity,
		capacity:  capacity,
		rate:      capacity / interval.Seconds(),
		lastCheck: time.Now(),
	}
}

// allow consumes one token, refilling first for the time elapsed since the
// previous call. It reports false when the bucket is empty.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.lastCheck).Seconds(); elapsed > 0 {
		rl.tokens = math.Min(rl.tokens+elapsed*rl.rate, rl.capacity)
	}
	rl.lastCheck = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
