// Package redis wraps the go-redis client shared by the remote cache backend
// and the redsync lock manager.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"artifact-cache/internal/common/errors"
)

// Nil is returned by go-redis when a key does not exist
const Nil = redis.Nil

// Config holds the connection parameters of the remote service
type Config struct {
	Address  string `yaml:"address" validate:"required,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0,lte=15"`
	PoolSize int    `yaml:"pool_size" validate:"gte=0"`
}

// Client is a connected Redis client. It is safe for concurrent use.
type Client struct {
	rdb    *redis.Client
	config Config
}

// NewClient connects to Redis and pings it once. A failed ping is fatal for
// this client: a ConnectionError is returned and nothing is retried.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}

	cfg := *config
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.ConnectionError(fmt.Sprintf("failed to connect to Redis at %s", cfg.Address), err)
	}

	return &Client{rdb: rdb, config: cfg}, nil
}

// GetGoRedisClient exposes the underlying go-redis client for pipelines and
// for libraries that take a go-redis client directly.
func (c *Client) GetGoRedisClient() *redis.Client {
	return c.rdb
}

// Config returns the effective connection parameters
func (c *Client) Config() Config {
	return c.config
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// GetBytes returns the raw value at key, or Nil when the key is absent
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

// Exists reports whether key is present
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	count, err := c.rdb.Exists(ctx, key).Result()
	return count > 0, err
}

// TxPipelined runs fn inside MULTI/EXEC
func (c *Client) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) error {
	_, err := c.rdb.TxPipelined(ctx, fn)
	return err
}
