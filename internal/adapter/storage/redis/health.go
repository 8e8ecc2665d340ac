package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck implements ports.HealthChecker for the Redis instance backing
// the shared hold map and the rate limiter. The hold expiry index must be a
// sorted set or absent.
type HealthCheck struct {
	client    *goredis.Client
	expiryKey string
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client, expiryKey: holdExpiryKey}
}

// Ping checks connectivity and the type of the hold expiry index.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return err
	}
	kind, err := h.client.Type(ctx, h.expiryKey).Result()
	if err != nil {
		return fmt.Errorf("redis hold index type: %w", err)
	}
	if kind != "none" && kind != "zset" {
		return fmt.Errorf("redis hold index %q is a %s, want zset", h.expiryKey, kind)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "redis"
}
