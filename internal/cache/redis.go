// Package cache provides an optional Redis-backed read-through cache for
// identity lookups. It is a pure performance layer: every miss or error
// falls through to the store, and nothing here participates in the
// uniqueness guarantees.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserIDCache maps (platform column, platform id) pairs to user ids.
type UserIDCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and returns a UserIDCache. A failed ping is an
// error so a misconfigured cache is caught at startup rather than as
// silent misses.
func New(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*UserIDCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	log := logger.With("component", "identity_cache")
	log.Info("Identity cache connected", "addr", addr, "ttl", ttl)
	return &UserIDCache{
		client: client,
		ttl:    ttl,
		logger: log,
	}, nil
}

func key(column, platformID string) string {
	return "convocore:user:" + column + ":" + platformID
}

// GetUserID returns the cached user id for a platform identifier, if any.
// Errors are logged and reported as misses.
func (c *UserIDCache) GetUserID(ctx context.Context, column, platformID string) (string, bool) {
	val, err := c.client.Get(ctx, key(column, platformID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Cache read failed", "column", column, "error", err)
		}
		return "", false
	}
	return val, true
}

// SetUserID records a platform-id → user-id mapping with the configured
// TTL. Failures are logged and ignored; the store remains authoritative.
func (c *UserIDCache) SetUserID(ctx context.Context, column, platformID, userID string) {
	if err := c.client.Set(ctx, key(column, platformID), userID, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Cache write failed", "column", column, "error", err)
	}
}

// Close releases the Redis connection.
func (c *UserIDCache) Close() error {
	return c.client.Close()
}
