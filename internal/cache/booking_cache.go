package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"carrental/internal/domain/models"
	"carrental/internal/utils"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking:"

// Client is the subset of go-redis the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// BookingCache stores booking snapshots in Redis. Failures are logged and
// treated as misses so the database stays the source of truth.
type BookingCache struct {
	Client Client
	TTL    time.Duration
}

func NewBookingCache(client Client, ttl time.Duration) *BookingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BookingCache{Client: client, TTL: ttl}
}

func key(bookingID string) string { return keyPrefix + bookingID }

func (c *BookingCache) Get(ctx context.Context, bookingID string) (models.Booking, bool) {
	raw, err := c.Client.Get(ctx, key(bookingID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			utils.LogError(utils.RequestIDFrom(ctx), "cache", "get", bookingID, err)
		}
		return models.Booking{}, false
	}
	var b models.Booking
	if err := json.Unmarshal(raw, &b); err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "cache", "decode", bookingID, err)
		return models.Booking{}, false
	}
	return b, true
}

func (c *BookingCache) Set(ctx context.Context, b models.Booking) {
	raw, err := json.Marshal(b)
	if err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "cache", "encode", b.BookingID, err)
		return
	}
	if err := c.Client.Set(ctx, key(b.BookingID), raw, c.TTL).Err(); err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "cache", "set", b.BookingID, err)
	}
}

func (c *BookingCache) Invalidate(ctx context.Context, bookingIDs ...string) {
	if len(bookingIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		keys = append(keys, key(id))
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "cache", "invalidate", "", err)
	}
}
