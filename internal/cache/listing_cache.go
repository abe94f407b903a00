package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"estatehub/listings/internal/models"
)

const (
	listingKeyPrefix = "listing:"

	// invalidationWindow bounds how long a read may take and still be
	// recognised as racing an invalidation.
	invalidationWindow = time.Minute
)

// IListingCache caches single listings by hex ID.
// Get returns (nil, nil) on a miss. Set stores listing unless its ID was
// invalidated at or after readAt, the moment the caller started reading it
// from the store, so a slow read cannot put back a record a write just
// replaced.
type IListingCache interface {
	Get(ctx context.Context, id string) (*models.Listing, error)
	Set(ctx context.Context, listing *models.Listing, readAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type redisListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisListingCache stores listings as JSON under "listing:<id>" with the given TTL.
func NewRedisListingCache(client *redis.Client, ttl time.Duration) IListingCache {
	return &redisListingCache{client: client, ttl: ttl}
}

func listingKey(id string) string {
	return listingKeyPrefix + id
}

func invalidatedKey(id string) string {
	return listingKeyPrefix + id + ":invalidated"
}

// setUnlessInvalidated writes KEYS[1] only when the invalidation marker in
// KEYS[2] is older than ARGV[2] (unix microseconds).
var setUnlessInvalidated = redis.NewScript(`
local inv = redis.call("GET", KEYS[2])
if inv and tonumber(inv) >= tonumber(ARGV[2]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

func (c *redisListingCache) Get(ctx context.Context, id string) (*models.Listing, error) {
	data, err := c.client.Get(ctx, listingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached listing %s: %w", id, err)
	}
	var listing models.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode cached listing %s: %w", id, err)
	}
	return &listing, nil
}

func (c *redisListingCache) Set(ctx context.Context, listing *models.Listing, readAt time.Time) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to encode listing %s: %w", listing.ID.Hex(), err)
	}
	id := listing.ID.Hex()
	err = setUnlessInvalidated.Run(ctx, c.client,
		[]string{listingKey(id), invalidatedKey(id)},
		string(data), readAt.UnixMicro(), c.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to cache listing %s: %w", id, err)
	}
	return nil
}

// Delete drops the cached listing and marks it invalidated now.
func (c *redisListingCache) Delete(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, listingKey(id))
		pipe.Set(ctx, invalidatedKey(id), time.Now().UnixMicro(), invalidationWindow)
		return nil
	})
	return err
}

// NoopListingCache never stores anything. Used when Redis is not configured.
type NoopListingCache struct{}

func (NoopListingCache) Get(context.Context, string) (*models.Listing, error)  { return nil, nil }
func (NoopListingCache) Set(context.Context, *models.Listing, time.Time) error { return nil }
func (NoopListingCache) Delete(context.Context, string) error                  { return nil }
