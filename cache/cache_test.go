package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/storefront-service/cache"
	"github.com/yashrajoria/storefront-service/models"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCatalogCache_RoundTripAndInvalidate(t *testing.T) {
	_, client := setupRedis(t)
	c := cache.NewCatalogCache(client, time.Minute)
	ctx := context.Background()

	_, version, ok, err := c.GetList(ctx, "all")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), version)

	items := []models.Item{{ID: uuid.New(), Name: "Mug", Price: decimal.RequireFromString("8.50"), Quantity: 3}}
	require.NoError(t, c.SetList(ctx, "all", version, items))

	got, _, ok, err := c.GetList(ctx, "all")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, items[0].ID, got[0].ID)
	assert.True(t, items[0].Price.Equal(got[0].Price))

	require.NoError(t, c.Invalidate(ctx))
	_, version, ok, err = c.GetList(ctx, "all")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(1), version)
}

func TestCatalogCache_InvalidateBetweenMissAndSet(t *testing.T) {
	_, client := setupRedis(t)
	c := cache.NewCatalogCache(client, time.Minute)
	ctx := context.Background()

	_, version, ok, err := c.GetList(ctx, "all")
	require.NoError(t, err)
	require.False(t, ok)

	// A writer commits and invalidates while the reader is still loading.
	require.NoError(t, c.Invalidate(ctx))

	stale := []models.Item{{ID: uuid.New(), Name: "Mug", Price: decimal.RequireFromString("8.50"), Quantity: 3}}
	require.NoError(t, c.SetList(ctx, "all", version, stale))

	_, current, ok, err := c.GetList(ctx, "all")
	require.NoError(t, err)
	assert.False(t, ok, "list loaded before the invalidation must not be served")
	assert.Equal(t, version+1, current)

	fresh := []models.Item{}
	require.NoError(t, c.SetList(ctx, "all", current, fresh))
	got, _, ok, err := c.GetList(ctx, "all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCatalogCache_Expires(t *testing.T) {
	mr, client := setupRedis(t)
	c := cache.NewCatalogCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetList(ctx, "discounts", 0, []models.Item{}))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.GetList(ctx, "discounts")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogCache_ServerDown(t *testing.T) {
	mr, client := setupRedis(t)
	c := cache.NewCatalogCache(client, time.Minute)
	mr.Close()

	_, _, _, err := c.GetList(context.Background(), "all")
	assert.Error(t, err)
}

func TestIdempotencyStore(t *testing.T) {
	mr, client := setupRedis(t)
	s := cache.NewIdempotencyStore(client, 0)
	ctx := context.Background()
	userID, orderID := uuid.New(), uuid.New()

	_, ok, err := s.Get(ctx, userID, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, userID, "k1", orderID))

	got, ok, err := s.Get(ctx, userID, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, orderID, got)

	_, ok, err = s.Get(ctx, uuid.New(), "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 24*time.Hour, mr.TTL("idem:checkout:"+userID.String()+":k1"))
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := cache.NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
