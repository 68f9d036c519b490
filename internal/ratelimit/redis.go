package ratelimit

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisCounter implements Counter over a Redis connection pool.
type RedisCounter struct {
	pool *redis.Pool
}

// NewRedisCounter creates a RedisCounter for the given address
// (host:port).
func NewRedisCounter(addr string) *RedisCounter {
	return &RedisCounter{
		pool: &redis.Pool{
			MaxIdle:     4,
			MaxActive:   16,
			IdleTimeout: 240 * time.Second,
			Wait:        true,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialContext(ctx, "tcp", addr,
					redis.DialConnectTimeout(2*time.Second),
					redis.DialReadTimeout(2*time.Second),
					redis.DialWriteTimeout(2*time.Second),
				)
			},
		},
	}
}

// Incr atomically increments key and returns the new value.
func (c *RedisCounter) Incr(ctx context.Context, key string) (int64, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return redis.Int64(conn.Do("INCR", key))
}

// Expire sets the key's time to live.
func (c *RedisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("EXPIRE", key, int64(ttl.Seconds()))
	return err
}

// Ping verifies the Redis connection.
func (c *RedisCounter) Ping(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Do("PING")
	return err
}

// Close releases the connection pool.
func (c *RedisCounter) Close() error {
	return c.pool.Close()
}
