// Package cache carries the pipeline's cross-cutting Redis signals:
// prediction cache invalidation, the predictions:updated change broadcast,
// and the 24-hour alert dedup records. Redis being down degrades these to
// warnings; it never fails a job.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const eventStream = "events:predictions"

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Cache wraps the Redis client used for pipeline signals.
type Cache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// InvalidatePredictions drops the cached prediction view for (sport, date).
func (c *Cache) InvalidatePredictions(ctx context.Context, sport, date string) {
	if c == nil {
		return
	}

	key := fmt.Sprintf("predictions:%s:%s", sport, date)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache invalidation failed")
		return
	}

	log.Debug().Str("key", key).Msg("Prediction cache invalidated")
}

// PublishPredictionsUpdated appends a predictions:updated event to the
// change stream consumed by downstream broadcasters. The stream is length
// capped so slow consumers cannot grow it unbounded.
func (c *Cache) PublishPredictionsUpdated(ctx context.Context, sport string, count int) {
	if c == nil {
		return
	}

	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"event": "predictions:updated",
			"sport": sport,
			"count": count,
		},
	}).Err()

	if err != nil {
		log.Warn().Err(err).Str("sport", sport).Msg("Failed to publish predictions:updated event")
		return
	}

	log.Debug().Str("sport", sport).Int("count", count).Msg("Change broadcast published")
}

// MarkAlerted claims the (match, recommendation) alert slot for ttl. Returns
// false when the slot is already claimed, i.e. the alert was sent within the
// window.
func (c *Cache) MarkAlerted(ctx context.Context, matchID int64, side string, ttl time.Duration) (bool, error) {
	if c == nil {
		// Without Redis every alert looks fresh; better noisy than silent.
		return true, nil
	}

	key := fmt.Sprintf("alert:%d:%s", matchID, side)
	ok, err := c.client.SetNX(ctx, key, time.Now().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark alert: %w", err)
	}
	return ok, nil
}

// ClearAlert releases an alert slot after a failed dispatch so the next pass
// can retry it.
func (c *Cache) ClearAlert(ctx context.Context, matchID int64, side string) {
	if c == nil {
		return
	}

	key := fmt.Sprintf("alert:%d:%s", matchID, side)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to clear alert record")
	}
}
