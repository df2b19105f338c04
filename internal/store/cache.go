package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ringbook/internal/models"
)

const slotsCacheKey = "slots:available"

// SlotCache is an optional Redis read-through cache for slot listings.
// Cached listings are stale snapshots; the reservation path never goes
// through the cache. A nil Redis client disables caching entirely.
type SlotCache struct {
	db     *DB
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

// NewSlotCache wraps the store with a listing cache.
func NewSlotCache(db *DB, redisClient *redis.Client, ttl time.Duration, logger *zerolog.Logger) *SlotCache {
	return &SlotCache{
		db:     db,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// ListAvailable returns available slots, served from cache when fresh.
func (c *SlotCache) ListAvailable(ctx context.Context, limit int) ([]models.Slot, error) {
	// Only the unbounded REST listing is cached; menu-sized listings go to the store.
	if c.redis == nil || c.ttl <= 0 || limit > 0 {
		return c.db.ListAvailable(ctx, limit)
	}

	if val, err := c.redis.Get(ctx, slotsCacheKey).Result(); err == nil {
		var slots []models.Slot
		if err := json.Unmarshal([]byte(val), &slots); err == nil {
			return slots, nil
		}
	}

	slots, err := c.db.ListAvailable(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(slots); err == nil {
		if err := c.redis.Set(ctx, slotsCacheKey, data, c.ttl).Err(); err != nil {
			c.logger.Debug().Err(err).Msg("slot cache write failed")
		}
	}
	return slots, nil
}

// Invalidate drops the cached listing after a successful booking.
func (c *SlotCache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, slotsCacheKey).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("slot cache invalidation failed")
	}
}
