package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdGenMCM/Updated-AdGen/internal/config"
)

type RedisClient struct {
	*redis.Client
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{rdb}, nil
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}

func (r *RedisClient) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	return r.Ping(ctx).Err()
}

const eventDedupTTL = 24 * time.Hour

// MarkEventProcessed records a webhook event id and reports whether
// this is the first time it was seen. Stripe delivers at-least-once, so
// retried deliveries short-circuit here before the entitlement merge.
func (r *RedisClient) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	first, err := r.SetNX(ctx, "stripe:event:"+eventID, 1, eventDedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return first, nil
}

// ClearEvent forgets a recorded event id. Called when processing fails
// after the id was reserved, so the redelivered event is applied rather
// than answered as a duplicate.
func (r *RedisClient) ClearEvent(ctx context.Context, eventID string) error {
	if err := r.Del(ctx, "stripe:event:"+eventID).Err(); err != nil {
		return fmt.Errorf("failed to clear webhook event: %w", err)
	}
	return nil
}
