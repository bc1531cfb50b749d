package infra

import (
	"context"
	"log"
	"sync"
	"time"
)

const rateLimitKeyPrefix = "focus:ratelimit:"

// RateDecision is the outcome of one rate-limit check.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter per credential. Counters live in Redis
// when available and in process memory otherwise, or whenever Redis errors.
type RateLimiter struct {
	redis  *RedisClient
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*rateWindow
}

func NewRateLimiter(redis *RedisClient, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:   redis,
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) RateDecision {
	if l.limit <= 0 {
		return RateDecision{Allowed: true, Limit: l.limit}
	}

	if l.redis != nil {
		count, ttl, err := l.redis.IncrementWindow(ctx, rateLimitKeyPrefix+key, l.window)
		if err == nil {
			return l.decide(int(count), ttl)
		}
		log.Printf("Rate limiter falling back to memory: %v", err)
	}

	return l.allowLocal(key)
}

func (l *RateLimiter) allowLocal(key string) RateDecision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++

	return l.decide(w.count, w.resetAt.Sub(now))
}

// sweep drops expired windows; caller holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (l *RateLimiter) decide(count int, ttl time.Duration) RateDecision {
	if count > l.limit {
		return RateDecision{Allowed: false, Limit: l.limit, RetryAfter: ttl}
	}
	return RateDecision{Allowed: true, Limit: l.limit, Remaining: l.limit - count, RetryAfter: ttl}
}
