package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per key. Buckets expire after a full
// idle window, at which point the key starts again with a full burst.
type MemoryLimiter struct {
	buckets *cache.Cache
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	window  time.Duration
}

// NewMemoryLimiter allows max requests per window for each key.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: cache.New(window, window),
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	return l.bucket(key).Allow(), nil
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if cached, found := l.buckets.Get(key); found {
		limiter = cached.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.limit, l.burst)
	}
	// Refresh the TTL so active keys keep their bucket.
	l.buckets.Set(key, limiter, l.window)
	return limiter
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	return l.buckets.ItemCount()
}
