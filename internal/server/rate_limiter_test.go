package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstExhaustion(t *testing.T) {
	req := require.New(t)
	rl := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: time.Hour})

	for i := 0; i < 3; i++ {
		req.True(rl.allow(), "request %d within the burst should pass", i+1)
	}
	req.False(rl.allow())
}

func TestRateLimiter_Refills(t *testing.T) {
	req := require.New(t)
	rl := newRateLimiter(RateLimitConfig{Burst: 1, RefillInterval: 10 * time.Millisecond})

	req.True(rl.allow())
	req.False(rl.allow())

	time.Sleep(30 * time.Millisecond)
	req.True(rl.allow())
}

func TestRateLimiter_ClampsInvalidParameters(t *testing.T) {
	req := require.New(t)
	rl := newRateLimiter(RateLimitConfig{})

	req.True(rl.allow())
	req.False(rl.allow())
}
