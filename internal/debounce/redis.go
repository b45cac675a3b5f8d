package debounce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the Guard used when several bot instances share one inbox:
// SETNX with a TTL gives the same expiring-marker semantics across
// processes.
type Redis struct {
	client *redis.Client
}

func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, userID, signature string, window time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key(userID, signature), "1", window).Result()
	if err != nil {
		// Fail open: a broken marker store must not swallow user actions.
		return true, err
	}
	return ok, nil
}
