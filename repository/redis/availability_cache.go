package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/cooper538/eshop-demo-sub000/repository"
)

type availabilityCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewAvailabilityCache creates a Redis-backed availability cache.
func NewAvailabilityCache(client *redislib.Client, ttl time.Duration) repository.AvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &availabilityCache{
		client: client,
		prefix: "stock:avail:",
		ttl:    ttl,
	}
}

func (c *availabilityCache) Get(ctx context.Context, productID string) (int, bool, error) {
	available, err := c.client.Get(ctx, c.key(productID)).Int()
	if err != nil {
		if err == redislib.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	return available, true, nil
}

func (c *availabilityCache) Set(ctx context.Context, productID string, available int) error {
	return c.client.Set(ctx, c.key(productID), available, c.ttl).Err()
}

func (c *availabilityCache) key(productID string) string {
	return fmt.Sprintf("%s%s", c.prefix, productID)
}
