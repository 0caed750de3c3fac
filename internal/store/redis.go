package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter is a fixed-window request counter shared by every
// checkpoint instance that points at the same redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit requests per key and window. Windows are
// whole seconds.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: "checkpoint:rl:"}
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (l *RedisLimiter) key(id string, now time.Time) string {
	return fmt.Sprintf("%s%s:%d", l.prefix, id, now.Unix()/int64(l.window/time.Second))
}

// Allow counts the request and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, id string) (bool, error) {
	key := l.key(id, time.Now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}
