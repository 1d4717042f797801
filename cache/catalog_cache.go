package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/storefront-service/models"
)

const (
	CatalogVersionKey      = "catalog:version"
	catalogListKeyFormat   = "catalog:v%d:%s"
	DefaultCatalogCacheTTL = 5 * time.Minute
)

// CatalogCache stores catalog listings under a version counter. Bumping
// the counter orphans every list at once; the orphans expire by TTL.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultCatalogCacheTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// GetList returns the cached list, the catalog version it was looked up
// under and whether it was present. On a miss the caller passes that
// version back to SetList.
func (c *CatalogCache) GetList(ctx context.Context, name string) ([]models.Item, int64, bool, error) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := c.client.Get(ctx, listKey(version, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, version, false, fmt.Errorf("failed to read catalog cache: %w", err)
	}

	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, version, false, fmt.Errorf("failed to decode catalog cache: %w", err)
	}
	return items, version, true, nil
}

// SetList stores items under the version read before they were loaded. A
// list read before an Invalidate therefore lands under an orphaned version
// and is never served.
func (c *CatalogCache) SetList(ctx context.Context, name string, version int64, items []models.Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode catalog list: %w", err)
	}
	if err := c.client.Set(ctx, listKey(version, name), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write catalog cache: %w", err)
	}
	return nil
}

// Invalidate bumps the version counter.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, CatalogVersionKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

// version reads the counter, treating a missing key as version 0.
func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, CatalogVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog cache version: %w", err)
	}
	return v, nil
}

func listKey(version int64, name string) string {
	return fmt.Sprintf(catalogListKeyFormat, version, name)
}
