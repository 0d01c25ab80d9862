package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanPageSize = 500

// keyStore is the slice of the redis client the invalidator needs.
type keyStore interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisInvalidator drops storefront catalog keys after an import changed
// products.
type RedisInvalidator struct {
	client  keyStore
	pattern string
	logger  *zap.Logger
}

func NewRedisInvalidator(client keyStore, pattern string, logger *zap.Logger) *RedisInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisInvalidator{client: client, pattern: pattern, logger: logger}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisInvalidator) InvalidateCatalog(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.pattern, scanPageSize).Result()
		if err != nil {
			return fmt.Errorf("scan %s: %w", c.pattern, err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("delete catalog keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	c.logger.Info("catalog cache invalidated", zap.String("pattern", c.pattern), zap.Int64("deleted", deleted))
	return nil
}
