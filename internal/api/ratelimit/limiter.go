// Package ratelimit bounds job submissions per client IP over a fixed
// one-minute window. Redis backs the counters when configured so the
// limit holds across replicas; otherwise a process-local window applies.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTimeout bounds the INCR round-trip; a slow Redis must not slow
// down submissions.
const redisTimeout = 200 * time.Millisecond

// keyTTL outlives the window slightly so a key never expires mid-window.
const keyTTL = 65 * time.Second

// Limiter is a fixed-window counter keyed by client IP.
type Limiter struct {
	rpm    int
	client *redis.Client
	now    func() time.Time

	mu       sync.Mutex
	counts   map[string]int
	windowAt time.Time
}

// New creates a limiter allowing rpm requests per client per minute.
// A nil Redis client keeps counting in process memory.
func New(rpm int, client *redis.Client) *Limiter {
	return &Limiter{
		rpm:    rpm,
		client: client,
		now:    time.Now,
		counts: map[string]int{},
	}
}

// Limit returns the per-minute budget.
func (l *Limiter) Limit() int {
	return l.rpm
}

// Allow counts one request for the client and reports whether it fits
// the current window, along with the remaining quota.
func (l *Limiter) Allow(ctx context.Context, clientIP string) (bool, int) {
	if l.rpm <= 0 {
		return true, l.rpm
	}

	if l.client != nil {
		ctx, cancel := context.WithTimeout(ctx, redisTimeout)
		defer cancel()

		key := l.windowKey(clientIP)
		n, err := l.client.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = l.client.Expire(ctx, key, keyTTL).Err()
			}
			return int(n) <= l.rpm, remaining(l.rpm, int(n))
		}
		// Redis being down must not take submissions down with it;
		// fall through to the in-memory window.
	}

	return l.allowInMemory(clientIP)
}

func (l *Limiter) windowKey(clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%d", clientIP, l.now().Unix()/60)
}

func (l *Limiter) allowInMemory(clientIP string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.windowAt) >= time.Minute {
		l.counts = map[string]int{}
		l.windowAt = now
	}

	l.counts[clientIP]++
	n := l.counts[clientIP]
	return n <= l.rpm, remaining(l.rpm, n)
}

func remaining(rpm, used int) int {
	if used >= rpm {
		return 0
	}
	return rpm - used
}
