package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weronikagajda/Citography-hostmap.github.io/internal/logger"
)

const cacheKeyPrefix = "hostmap:geo:"

// GeoCache stores enrichment results in redis keyed by IP, so re-running the
// pipeline over an overlapping bookmark export skips remote calls for
// addresses seen before.
type GeoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGeoCache wraps a redis client. TTL <= 0 means entries never expire,
// which suits geolocation data that drifts slowly.
func NewGeoCache(client *redis.Client, ttl time.Duration) *GeoCache {
	if client == nil {
		return nil
	}
	return &GeoCache{client: client, ttl: ttl}
}

func (c *GeoCache) Get(ctx context.Context, ip string) (Result, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+ip).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("geo_cache_get_failed", "ip", ip, "error", err)
		}
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		logger.L().Warn("geo_cache_decode_failed", "ip", ip, "error", err)
		return Result{}, false
	}
	return res, true
}

// Put is best effort. A cache write failure never fails the lookup.
func (c *GeoCache) Put(ctx context.Context, ip string, res Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+ip, raw, c.ttl).Err(); err != nil {
		logger.L().Warn("geo_cache_put_failed", "ip", ip, "error", err)
	}
}
