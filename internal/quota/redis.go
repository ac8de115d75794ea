package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyTTL keeps day keys around past the rollover so late writes
// still land on the right date.
const redisKeyTTL = 48 * time.Hour

// RedisStore keeps the per-day sent counter in Redis. INCRBY gives the
// atomic increment the shared-counter contract requires.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client (used in tests).
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func dayKey(day string) string {
	return "quota:sent:" + day
}

// IncrementSent atomically adds n to the day's counter and returns the
// new total.
func (s *RedisStore) IncrementSent(ctx context.Context, day string, n int) (int, error) {
	key := dayKey(day)

	total, err := s.client.IncrBy(ctx, key, int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby %s: %w", key, err)
	}
	if total == int64(n) {
		// First write of the day sets the expiry.
		s.client.Expire(ctx, key, redisKeyTTL)
	}
	return int(total), nil
}

// SentOn reads the day's counter, zero if absent.
func (s *RedisStore) SentOn(ctx context.Context, day string) (int, error) {
	total, err := s.client.Get(ctx, dayKey(day)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", dayKey(day), err)
	}
	return total, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
