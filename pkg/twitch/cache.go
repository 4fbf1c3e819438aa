package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redispkg "github.com/subculture-collective/clipqueue/pkg/redis"
)

const (
	cacheKeyPrefix = "twitch:"
)

// Cache defines the interface for caching operations
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
}

// RedisCache wraps Redis client to implement Cache interface
type RedisCache struct {
	client *redispkg.Client
}

// NewRedisCache creates a new Redis-backed cache
func NewRedisCache(client *redispkg.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from cache
func (c *RedisCache) Get(key string) (interface{}, bool) {
	ctx := context.Background()
	val, err := c.client.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value in cache with TTL
func (c *RedisCache) Set(key string, value interface{}, ttl time.Duration) {
	ctx := context.Background()
	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	default:
		// For non-string values, try to convert
		strVal = fmt.Sprintf("%v", v)
	}
	_ = c.client.Set(ctx, key, strVal, ttl)
}

// Delete removes a value from cache
func (c *RedisCache) Delete(key string) {
	ctx := context.Background()
	_ = c.client.Delete(ctx, key)
}

// CachedClip retrieves resolved clip metadata from cache.
func (c *RedisCache) CachedClip(ctx context.Context, clipID string) (*Clip, error) {
	cacheKey := fmt.Sprintf("%sclip:%s", cacheKeyPrefix, clipID)
	val, err := c.client.Get(ctx, cacheKey)
	if err != nil {
		return nil, err
	}

	var clip Clip
	if err := json.Unmarshal([]byte(val), &clip); err != nil {
		return nil, err
	}

	return &clip, nil
}

// CacheClip stores resolved clip metadata, sparing a repeat Helix lookup for the same clip.
func (c *RedisCache) CacheClip(ctx context.Context, clip *Clip, ttl time.Duration) error {
	cacheKey := fmt.Sprintf("%sclip:%s", cacheKeyPrefix, clip.ID)
	clipData, err := json.Marshal(clip)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey, string(clipData), ttl)
}
