package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserCache remembers email to Slack user id lookups.
type UserCache interface {
	Get(ctx context.Context, email string) (userID string, ok bool, err error)
	Set(ctx context.Context, email, userID string) error
}

const userCachePrefix = "copilot:slack-user:"

// RedisUserCache is a UserCache backed by Redis keys with a TTL.
type RedisUserCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// DialRedis parses redisURL, connects and pings.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisUserCache wraps rdb. A non-positive ttl defaults to 24h.
func NewRedisUserCache(rdb *redis.Client, ttl time.Duration) *RedisUserCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisUserCache{rdb: rdb, ttl: ttl}
}

func (c *RedisUserCache) Get(ctx context.Context, email string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, cacheKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return id, true, nil
}

func (c *RedisUserCache) Set(ctx context.Context, email, userID string) error {
	if err := c.rdb.Set(ctx, cacheKey(email), userID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func cacheKey(email string) string {
	return userCachePrefix + strings.ToLower(strings.TrimSpace(email))
}
