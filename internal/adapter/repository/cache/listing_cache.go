package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "listing:"

// ListingCache keeps serialized listings in Redis. It is only a read
// cache; writers invalidate entries after their transaction commits.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewListingCache(ctx context.Context, opts *redis.Options, ttl time.Duration) (*ListingCache, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return NewListingCacheFromClient(client, ttl), nil
}

func NewListingCacheFromClient(client *redis.Client, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ListingCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a cache miss.
func (c *ListingCache) Get(ctx context.Context, id string) (*domain.Listing, error) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *ListingCache) Set(ctx context.Context, listing *domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+listing.ID, data, c.ttl).Err()
}

func (c *ListingCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, keyPrefix+id).Err()
}

func (c *ListingCache) Close() error {
	return c.client.Close()
}
