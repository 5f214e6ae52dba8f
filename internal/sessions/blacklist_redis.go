// Package sessions tracks signed-out access tokens so they stop working
// before they expire.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:access:"

var (
	mu              sync.RWMutex
	blacklistClient *redis.Client
)

// SetBlacklistClient configures the Redis client used for blacklist operations.
// Safe to call with nil to disable blacklist features.
func SetBlacklistClient(c *redis.Client) {
	mu.Lock()
	defer mu.Unlock()
	blacklistClient = c
}

func client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return blacklistClient
}

// Enabled reports whether sign-out can revoke tokens.
func Enabled() bool { return client() != nil }

// BlacklistAccessToken stores the given token in Redis blacklist with TTL.
// If no Redis client is configured, this is a no-op and returns nil.
func BlacklistAccessToken(ctx context.Context, token string, ttl time.Duration) error {
	c := client()
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return c.Set(ctx, blacklistPrefix+token, "1", ttl).Err()
}

// IsAccessTokenBlacklisted returns true when the token exists in the Redis blacklist.
// If no Redis client is configured, returns (false, nil).
func IsAccessTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	c := client()
	if c == nil {
		return false, nil
	}
	exists, err := c.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
