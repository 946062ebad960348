package middleware

import "time"

func (rl *RateLimiter) EvictIdle(ttl time.Duration) { rl.evictIdle(ttl) }

func (rl *RateLimiter) Visitors() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

func (rl *RateLimiter) RetryAfter() string { return rl.retryAfter }
