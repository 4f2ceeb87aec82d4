package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingCache_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}
	ctx := context.Background()
	c, err := NewListingCache(ctx, &redis.Options{Addr: addr}, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, "missing-id")
	require.NoError(t, err)
	assert.Nil(t, got)

	l := &domain.Listing{ID: "cache-test-1", Title: "Cabin", OwnerID: "alice", Location: domain.Location{Lat: 1, Lng: 2}}
	require.NoError(t, c.Set(ctx, l))
	got, err = c.Get(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Cabin", got.Title)
	assert.Equal(t, "alice", got.OwnerID)

	require.NoError(t, c.Delete(ctx, l.ID))
	got, err = c.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
