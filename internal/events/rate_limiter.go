package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig bounds how often an action may run per debate.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// DefaultRateLimitConfig allows five suggestion requests per minute.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Max:    5,
		Window: time.Minute,
	}
}

// RateLimiter counts actions in fixed windows stored in Redis.
type RateLimiter struct {
	rdb    *redis.Client
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, config RateLimitConfig) *RateLimiter {
	if config.Max <= 0 || config.Window <= 0 {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{rdb: rdb, config: config}
}

func rateKey(action, debateID string) string {
	return fmt.Sprintf("rate:%s:%s", action, debateID)
}

// Allow records one action and reports whether it fits in the current window.
func (rl *RateLimiter) Allow(ctx context.Context, action, debateID string) (bool, error) {
	if rl == nil || rl.rdb == nil {
		return false, ErrRedisUnavailable
	}

	key := rateKey(action, debateID)
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := rl.rdb.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(rl.config.Max), nil
}
