package permissions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/brokerhive/portal/pkg/observability"
)

// SnapshotCache serves permission snapshots from a two-tier cache in
// front of the store: an in-process LRU and a shared Redis tier. Redis
// is optional; with a nil client only the LRU is used.
//
// Writes go through Save/Reset on the cache so both tiers are
// invalidated in step with the store.
type SnapshotCache struct {
	store   *Store
	local   *lru.LRU[string, Set]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *observability.Logger
}

// SnapshotCacheConfig tunes the cache tiers.
type SnapshotCacheConfig struct {
	// MaxEntries caps the in-process LRU. Defaults to 1024.
	MaxEntries int
	// TTL applies to both tiers. Defaults to 5 minutes.
	TTL time.Duration
}

// NewSnapshotCache wraps a store with the cache tiers. redisClient may
// be nil.
func NewSnapshotCache(store *Store, redisClient *redis.Client, cfg SnapshotCacheConfig, metrics *observability.Metrics, logger *observability.Logger) *SnapshotCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	return &SnapshotCache{
		store:   store,
		local:   lru.NewLRU[string, Set](cfg.MaxEntries, nil, cfg.TTL),
		redis:   redisClient,
		ttl:     cfg.TTL,
		metrics: metrics,
		logger:  logger,
	}
}

func cacheKey(brokerID string) string {
	return fmt.Sprintf("perms:%s", brokerID)
}

// GetPermissions returns the broker's snapshot, trying the LRU, then
// Redis, then the store. Redis errors degrade to a store read.
func (c *SnapshotCache) GetPermissions(ctx context.Context, brokerID string) (Set, error) {
	if perms, ok := c.local.Get(brokerID); ok {
		c.hit("l1")
		return perms.Clone(), nil
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey(brokerID)).Result()
		if err == nil {
			var perms Set
			if err := json.Unmarshal([]byte(cached), &perms); err == nil {
				c.hit("l2")
				c.local.Add(brokerID, perms)
				return perms.Clone(), nil
			}
		} else if err != redis.Nil {
			c.logger.WithError(err).Debug("redis read failed, falling through to store")
		}
	}

	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}

	perms, err := c.store.GetPermissions(ctx, brokerID)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, brokerID, perms)
	return perms, nil
}

// SavePermissions writes through the store and refreshes both tiers.
// A failed save leaves the cache untouched.
func (c *SnapshotCache) SavePermissions(ctx context.Context, brokerID, actorID string, next Set, reason string) (*SaveResult, error) {
	res, err := c.store.SavePermissions(ctx, brokerID, actorID, next, reason)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx, brokerID)
	return res, nil
}

// ResetToTemplate resets through the store and refreshes both tiers.
func (c *SnapshotCache) ResetToTemplate(ctx context.Context, brokerID, actorID, reason string) (Set, error) {
	tpl, err := c.store.ResetToTemplate(ctx, brokerID, actorID, reason)
	if err != nil {
		return nil, err
	}
	c.Invalidate(ctx, brokerID)
	return tpl, nil
}

// Invalidate drops the broker's snapshot from both tiers.
func (c *SnapshotCache) Invalidate(ctx context.Context, brokerID string) {
	c.local.Remove(brokerID)
	if c.redis != nil {
		if err := c.redis.Del(ctx, cacheKey(brokerID)).Err(); err != nil {
			c.logger.WithError(err).
				WithField("broker_id", brokerID).
				Warn("failed to invalidate redis snapshot")
		}
	}
}

func (c *SnapshotCache) fill(ctx context.Context, brokerID string, perms Set) {
	c.local.Add(brokerID, perms.Clone())
	if c.redis != nil {
		if data, err := json.Marshal(perms); err == nil {
			c.redis.Set(ctx, cacheKey(brokerID), data, c.ttl)
		}
	}
}

func (c *SnapshotCache) hit(tier string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}
