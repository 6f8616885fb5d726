// Package ratelimit throttles public endpoints with fixed-window counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deployment-tracker/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one hit.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts a hit for key and decides whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, ttl time.Duration) Decision {
	d := Decision{Allowed: count <= int64(limit), Limit: limit}
	if rem := int64(limit) - count; rem > 0 {
		d.Remaining = int(rem)
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d
}

// RedisLimiter shares counters across API replicas.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("ratelimit: redis client is nil")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("ratelimit: limit and window must be > 0")
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := utils.FixedWindowHit(ctx, l.rdb, l.prefix+key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	return decide(count, l.limit, ttl), nil
}

// MemoryLimiter keeps counters in process; used in tests and when Redis is
// not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]memoryWindow
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: window, now: time.Now, windows: make(map[string]memoryWindow)}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if !now.Before(w.resetAt) {
		w = memoryWindow{resetAt: now.Add(l.window)}
	}
	w.count++
	l.windows[key] = w

	// drop expired windows so the map stays bounded by active keys
	if len(l.windows) > 1024 {
		for k, v := range l.windows {
			if !now.Before(v.resetAt) {
				delete(l.windows, k)
			}
		}
	}
	return decide(w.count, l.limit, w.resetAt.Sub(now)), nil
}
