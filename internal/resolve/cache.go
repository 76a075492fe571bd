package resolve

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

const (
	redisCachePrefix       = "flixres:resolution:"
	defaultCacheMaxEntries = 512
)

// Cache stores finished resolutions by embed URL or page id.
type Cache interface {
	Get(ctx context.Context, key string) (*media.Resolution, bool, error)
	Set(ctx context.Context, key string, res *media.Resolution, ttl time.Duration) error
}

type memoryEntry struct {
	res       *media.Resolution
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache. Expired entries are dropped on
// read and when the cache is full.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: defaultCacheMaxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*media.Resolution, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return cloneResolution(e.res), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, res *media.Resolution, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.maxEntries {
		c.evict(now)
	}
	c.entries[key] = memoryEntry{res: cloneResolution(res), expiresAt: now.Add(ttl)}
	return nil
}

// evict drops expired entries, then the entry closest to expiry if the
// cache is still full.
func (c *MemoryCache) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	if len(c.entries) >= c.maxEntries && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RedisCache stores resolutions in Redis with JSON serialization.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*media.Resolution, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var res media.Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, err
	}
	return &res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res *media.Resolution, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

// Ping checks that the server answers.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cloneResolution(res *media.Resolution) *media.Resolution {
	if res == nil {
		return nil
	}
	out := &media.Resolution{Extractor: res.Extractor}
	if res.Links != nil {
		out.Links = make([]media.ResolvedLink, len(res.Links))
		for i, l := range res.Links {
			if l.Headers != nil {
				h := make(map[string]string, len(l.Headers))
				for k, v := range l.Headers {
					h[k] = v
				}
				l.Headers = h
			}
			out.Links[i] = l
		}
	}
	out.Subtitles = append([]media.SubtitleTrack(nil), res.Subtitles...)
	return out
}
