package dag

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter holds one token bucket per named bucket (e.g. an external
// provider's documented RPS cap). A task acquires its bucket without
// holding a worker slot while waiting, so a rate-limited task doesn't
// starve its pool.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	newFunc func() *rate.Limiter
}

// NewRateLimiter builds a RateLimiter. defs maps a bucket name to
// (requests-per-second, burst); a task naming a bucket not present here
// is unlimited.
func NewRateLimiter(defs map[string]RateLimit) *RateLimiter {
	rl := &RateLimiter{buckets: make(map[string]*rate.Limiter, len(defs))}
	for name, def := range defs {
		rl.buckets[name] = rate.NewLimiter(rate.Limit(def.RPS), def.Burst)
	}
	return rl
}

// RateLimit configures one named token bucket.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Wait blocks until a token is available for bucket, or ctx is done.
// An unregistered or empty bucket name is a no-op.
func (rl *RateLimiter) Wait(ctx context.Context, bucket string) error {
	if bucket == "" {
		return nil
	}
	rl.mu.Lock()
	limiter, ok := rl.buckets[bucket]
	rl.mu.Unlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
