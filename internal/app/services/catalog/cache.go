package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/morarasu-alexandru/nft-collection-manager/internal/app/domain/asset"
	"github.com/morarasu-alexandru/nft-collection-manager/pkg/logger"
)

// Cache is the read-through cache consulted by catalog reads. A miss is
// (zero, false); implementations must never fail a read path, only miss.
type Cache interface {
	GetOwnerAssets(ctx context.Context, ownerID string) ([]asset.Asset, bool)
	SetOwnerAssets(ctx context.Context, ownerID string, assets []asset.Asset)
	GetDetails(ctx context.Context, assetID string) (asset.Details, bool)
	SetDetails(ctx context.Context, details asset.Details)
	InvalidateOwner(ctx context.Context, ownerID string)
	InvalidateAsset(ctx context.Context, assetID string)
}

const (
	ownerKeyPrefix = "catalog:owner:"
	assetKeyPrefix = "catalog:asset:"
)

// RedisCache caches catalog reads in Redis with a fixed TTL. Values are
// JSON-encoded; any redis or codec error is treated as a miss and logged
// at debug level.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("catalog-cache")
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) GetOwnerAssets(ctx context.Context, ownerID string) ([]asset.Asset, bool) {
	raw, err := c.client.Get(ctx, ownerKeyPrefix+ownerID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("owner cache read failed")
		}
		return nil, false
	}
	var assets []asset.Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		c.log.WithError(err).Debug("owner cache entry corrupt")
		return nil, false
	}
	return assets, true
}

func (c *RedisCache) SetOwnerAssets(ctx context.Context, ownerID string, assets []asset.Asset) {
	raw, err := json.Marshal(assets)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ownerKeyPrefix+ownerID, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("owner cache write failed")
	}
}

func (c *RedisCache) GetDetails(ctx context.Context, assetID string) (asset.Details, bool) {
	raw, err := c.client.Get(ctx, assetKeyPrefix+assetID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("asset cache read failed")
		}
		return asset.Details{}, false
	}
	var details asset.Details
	if err := json.Unmarshal(raw, &details); err != nil {
		c.log.WithError(err).Debug("asset cache entry corrupt")
		return asset.Details{}, false
	}
	return details, true
}

func (c *RedisCache) SetDetails(ctx context.Context, details asset.Details) {
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, assetKeyPrefix+details.ID, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("asset cache write failed")
	}
}

func (c *RedisCache) InvalidateOwner(ctx context.Context, ownerID string) {
	if err := c.client.Del(ctx, ownerKeyPrefix+ownerID).Err(); err != nil {
		c.log.WithError(err).Debug("owner cache invalidate failed")
	}
}

func (c *RedisCache) InvalidateAsset(ctx context.Context, assetID string) {
	if err := c.client.Del(ctx, assetKeyPrefix+assetID).Err(); err != nil {
		c.log.WithError(err).Debug("asset cache invalidate failed")
	}
}
