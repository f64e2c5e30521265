// Package ratelimit implements a fixed-window request counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether another hit for key fits into the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Nop never limits. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Allow(context.Context, string) (bool, error) { return true, nil }

// hitScript counts a hit and sets the window TTL in one step. A key left
// without a TTL gets one on its next hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type RedisLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{redis: client, limit: int64(limit), window: window, prefix: "rl:"}
}

// Allow increments the counter for key; the first hit starts the window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := hitScript.Run(ctx, l.redis, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit hit: %w", err)
	}
	return count <= l.limit, nil
}
