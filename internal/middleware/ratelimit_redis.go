package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed one-minute windows across replicas through Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	prefix string
	now    func() time.Time
}

// NewRedisLimiter parses url (redis://...) and checks the server answers.
func NewRedisLimiter(ctx context.Context, url string, limitPerMinute int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	opts.DialTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisLimiter(client, limitPerMinute), nil
}

func newRedisLimiter(client *redis.Client, limitPerMinute int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limitPerMinute,
		prefix: "nl2sql:ratelimit:",
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (int, bool, error) {
	bucket := l.now().Unix() / 60
	k := fmt.Sprintf("%s%s:%d", l.prefix, key, bucket)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, 2*time.Minute)
		return nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("redis rate limit: %w", err)
	}

	count := int(incr.Val())
	if count > l.limit {
		return 0, false, nil
	}
	return l.limit - count, true, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
