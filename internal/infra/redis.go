package infra

import (
	"context"
	"fmt"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Cache is a Redis client plus whatever must be released with it.
type Cache struct {
	*redis.Client
	embedded *miniredis.Miniredis
}

// Embedded reports whether the cache is served in-process.
func (c *Cache) Embedded() bool {
	return c.embedded != nil
}

// Close releases the client and stops the embedded server, if any.
func (c *Cache) Close() error {
	err := c.Client.Close()
	if c.embedded != nil {
		c.embedded.Close()
	}
	return err
}

// NewRedisClient configures a Redis client and verifies connectivity. With
// an empty url and embedded set, an in-process server is started instead so
// development runs need no Redis.
func NewRedisClient(ctx context.Context, url string, embedded bool) (*Cache, error) {
	if url == "" {
		if !embedded {
			return nil, fmt.Errorf("redis url is required")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		return &Cache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}), embedded: mr}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{Client: client}, nil
}
