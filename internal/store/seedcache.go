package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

const (
	recentSeedsKey = "campaign:recent_seeds"
	recentSeedsTTL = 5 * time.Minute
)

// SeedCache is a read-through Redis cache over the recent-seed comparison
// window. Cache failures degrade to direct database reads.
type SeedCache struct {
	store  *Store
	redis  goredis.UniversalClient
	logger logging.Logger
}

// NewSeedCache wraps a store with a Redis cache. A nil client disables
// caching entirely.
func NewSeedCache(store *Store, redis goredis.UniversalClient, logger logging.Logger) *SeedCache {
	return &SeedCache{store: store, redis: redis, logger: logger}
}

// Recent returns the most recently created seeds, newest first, serving
// from Redis when a fresh copy is cached.
func (c *SeedCache) Recent(ctx context.Context, limit int) ([]models.CanonicalSeed, error) {
	if c.redis == nil {
		return c.store.ListRecentSeeds(ctx, limit)
	}

	key := fmt.Sprintf("%s:%d", recentSeedsKey, limit)
	cached, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var seeds []models.CanonicalSeed
		if jsonErr := json.Unmarshal(cached, &seeds); jsonErr == nil {
			return seeds, nil
		}
		// Unreadable cache entry; fall through to the database.
		c.redis.Del(ctx, key)
	} else if err != goredis.Nil {
		c.logger.WithField("error", err.Error()).Warn("Redis read failed, falling back to database")
	}

	seeds, err := c.store.ListRecentSeeds(ctx, limit)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(seeds); jsonErr == nil {
		if setErr := c.redis.Set(ctx, key, payload, recentSeedsTTL).Err(); setErr != nil {
			c.logger.WithField("error", setErr.Error()).Warn("Redis write failed")
		}
	}
	return seeds, nil
}

// Invalidate drops all cached windows. Called after any seed create or
// merge so the next comparison sees the change.
func (c *SeedCache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}

	iter := c.redis.Scan(ctx, 0, recentSeedsKey+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithField("error", err.Error()).Warn("Redis scan failed during invalidation")
		return
	}
	if len(keys) > 0 {
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.logger.WithField("error", err.Error()).Warn("Redis delete failed during invalidation")
		}
	}
}
