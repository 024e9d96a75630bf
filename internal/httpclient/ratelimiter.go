package httpclient

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiterConfig declares one source's token-bucket rate limit (spec
// §4.1 "Rate limiting"). Burst defaults to 2x RequestsPerSecond when left
// at zero, mirroring the teacher's InMemoryRateLimiter burst computation.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func (c RateLimiterConfig) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}

	return int(c.RequestsPerSecond * 2)
}

// RateLimiter enforces a distinct token bucket per source, the way the
// teacher's InMemoryRateLimiter enforces one bucket per authenticated
// plugin. Unlike the teacher, the source set here is fixed at startup from
// configuration rather than growing unbounded at request time, so no
// idle-eviction goroutine is required.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	configs  map[string]RateLimiterConfig
}

// NewRateLimiter builds a RateLimiter from one config per source name.
func NewRateLimiter(configs map[string]RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter, len(configs)),
		configs:  configs,
	}
}

// Wait blocks until source's bucket has a token available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, source string) error {
	return rl.limiterFor(source).Wait(ctx)
}

// Allow reports, without blocking, whether source currently has a token
// available.
func (rl *RateLimiter) Allow(source string) bool {
	return rl.limiterFor(source).Allow()
}

func (rl *RateLimiter) limiterFor(source string) *rate.Limiter {
	rl.mu.RLock()
	l, ok := rl.limiters[source]
	rl.mu.RUnlock()

	if ok {
		return l
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok = rl.limiters[source]; ok {
		return l
	}

	cfg, ok := rl.configs[source]
	if !ok {
		cfg = RateLimiterConfig{RequestsPerSecond: 1}
	}

	l = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.burst())
	rl.limiters[source] = l

	return l
}
