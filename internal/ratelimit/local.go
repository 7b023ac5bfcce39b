package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// LocalLimiter keeps a token bucket per key in process memory. Buckets of
// keys that stay idle for a few windows are dropped.
type LocalLimiter struct {
	buckets *cache.Cache
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idle    time.Duration
}

// NewLocalLimiter allows limit requests per window with bursts up to limit.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	idle := 3 * window
	return &LocalLimiter{
		buckets: cache.New(idle, idle),
		r:       rate.Limit(float64(limit) / window.Seconds()),
		b:       limit,
		idle:    idle,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string) error {
	if !l.bucket(key).Allow() {
		return ErrLimited
	}
	return nil
}

func (l *LocalLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.buckets.Set(key, lim, l.idle)
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.buckets.Set(key, lim, l.idle)
	return lim
}
