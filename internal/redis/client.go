package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// idem:order:create:{Idempotency-Key} -> order id
	keyIdemOrderCreate = "idem:order:create:%s"
)

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewClient wraps an existing go-redis client.
func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Counters

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n > 0, nil
}

// Seed sets key to value unless another writer got there first.
func (c *Client) Seed(ctx context.Context, key string, value int64) error {
	if err := c.rdb.SetNX(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to seed %s: %w", key, err)
	}
	return nil
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

// Idempotent order creation

// LookupOrder returns the order id recorded for an Idempotency-Key.
func (c *Client) LookupOrder(ctx context.Context, idemKey string) (uint, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf(keyIdemOrderCreate, idemKey)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return uint(id), true, nil
}

// RememberOrder records orderID for idemKey unless the key is already taken.
func (c *Client) RememberOrder(ctx context.Context, idemKey string, orderID uint, ttl time.Duration) error {
	key := fmt.Sprintf(keyIdemOrderCreate, idemKey)
	if err := c.rdb.SetNX(ctx, key, orderID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set idempotency key: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
