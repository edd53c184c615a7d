package advertising

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/autoparts-market/backend/internal/models"
)

const (
	// ActiveCacheKey is the Redis key holding the cached active advertising.
	ActiveCacheKey = "advertising:active"
	// ActiveGenerationKey is bumped by every invalidation.
	ActiveGenerationKey = "advertising:active:gen"
)

// storeIfGeneration writes KEYS[1] only while KEYS[2] still holds the generation the reader saw.
var storeIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type cachedActive struct {
	Advertising *models.Advertising `json:"advertising"`
}

// RedisActiveCache keeps the active advertising in Redis for ttl. Writes are versioned
// against a generation counter so a slow reader cannot overwrite a newer invalidation.
type RedisActiveCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisActiveCache creates a Redis-backed active advertising cache.
func NewRedisActiveCache(client *redis.Client, ttl time.Duration) *RedisActiveCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisActiveCache{client: client, ttl: ttl}
}

// Lookup reads the cached value and the current generation in one round trip.
func (c *RedisActiveCache) Lookup(ctx context.Context) (ActiveLookup, error) {
	vals, err := c.client.MGet(ctx, ActiveCacheKey, ActiveGenerationKey).Result()
	if err != nil {
		return ActiveLookup{}, fmt.Errorf("redis mget: %w", err)
	}
	var res ActiveLookup
	if s, ok := vals[1].(string); ok {
		if res.Generation, err = strconv.ParseInt(s, 10, 64); err != nil {
			return ActiveLookup{}, fmt.Errorf("parse cache generation: %w", err)
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return res, nil
	}
	var v cachedActive
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return res, fmt.Errorf("decode cached advertising: %w", err)
	}
	res.Advertising, res.Hit = v.Advertising, true
	return res, nil
}

// Store caches a (nil means no active advertising) unless the generation moved past gen.
func (c *RedisActiveCache) Store(ctx context.Context, gen int64, a *models.Advertising) (bool, error) {
	raw, err := json.Marshal(cachedActive{Advertising: a})
	if err != nil {
		return false, err
	}
	n, err := storeIfGeneration.Run(ctx, c.client,
		[]string{ActiveCacheKey, ActiveGenerationKey},
		strconv.FormatInt(gen, 10), string(raw), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis store active: %w", err)
	}
	return n == 1, nil
}

// Invalidate bumps the generation and drops the cached value atomically.
func (c *RedisActiveCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, ActiveGenerationKey)
		p.Del(ctx, ActiveCacheKey)
		return nil
	})
	return err
}
