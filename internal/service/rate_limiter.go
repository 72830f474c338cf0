package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/sykkeldel/locker-server/internal/redis"
)

// rateLimitScript is a sliding-window limiter over a sorted set. It returns
// {allowed, remaining, resetAt}.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = now + window
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

return {1, limit - count - 1, now + window}
`)

// RateDecision is the outcome of one rate limit check.
type RateDecision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per key in Redis. When Redis is unreachable
// the limiter answers with its fail policy: closed limiters deny, open ones
// allow.
type RateLimiter struct {
	client   *redis.Client
	failOpen bool
}

// NewRateLimiter returns a limiter that denies requests when Redis fails.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// NewFailOpenRateLimiter returns a limiter that allows requests when Redis
// fails. Used for the locker controller, which must keep polling.
func NewFailOpenRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, failOpen: true}
}

func (rl *RateLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) RateDecision {
	now := time.Now()

	result, err := rateLimitScript.Run(
		ctx,
		rl.client,
		[]string{redisclient.RateLimitKey(key)},
		now.Unix(),
		int64(window.Seconds()),
		limit,
	).Int64Slice()
	if err == nil && len(result) != 3 {
		err = fmt.Errorf("unexpected rate limit result length %d", len(result))
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("key", key).
			Bool("failOpen", rl.failOpen).
			Msg("rate limit check failed")
		return RateDecision{Allowed: rl.failOpen, ResetAt: now.Add(window)}
	}

	return RateDecision{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   time.Unix(result[2], 0),
	}
}
