package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter performs sliding-window rate limiting backed by Redis sorted
// sets, for deployments that run more than one relay process. Fails open on
// Redis errors so a cache outage never takes the gateway down with it.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

// slidingWindowScript atomically: removes expired entries, adds current, counts.
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micro)
// ARGV[2] = now (unix micro) — used as both score and member uniqueness
// ARGV[3] = limit
// ARGV[4] = TTL seconds for the key
// Returns: [current_count, 1=allowed/0=denied]
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, ttl)
    return {count + 1, 1}
end

redis.call('EXPIRE', key, ttl)
return {count, 0}
`)

func (l *RedisLimiter) Limit() int64 { return l.limit }

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Add(-l.window).UnixMicro()
	nowMicro := now.UnixMicro()
	ttlSecs := int64(l.window.Seconds()) + 1

	redisKey := fmt.Sprintf("relay:rl:%s", key)

	result, err := slidingWindowScript.Run(ctx, l.rdb, []string{redisKey},
		windowStart, nowMicro, l.limit, ttlSecs,
	).Int64Slice()
	if err != nil {
		// Fail open on Redis errors
		return Result{Allowed: true, Remaining: l.limit, ResetAt: now.Add(l.window)}, nil
	}

	count := result[0]
	allowed := result[1] == 1
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(l.window)
	var retryAfter time.Duration
	if !allowed {
		retryAfter = l.window / 2 // conservative estimate
	}

	return Result{
		Allowed:    allowed,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}, nil
}
