package httpclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is applied when a cache entry is stored without a TTL.
const DefaultCacheTTL = 30 * time.Second

// Cache stores raw response bodies keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	// Invalidate removes every entry when pattern is empty, otherwise every
	// entry whose key contains pattern.
	Invalidate(ctx context.Context, pattern string)
}

// CacheKey builds "url:{params}" with params serialized as a JSON object.
func CacheKey(rawURL string, params url.Values) string {
	obj := make(map[string]any, len(params))
	for k, vals := range params {
		switch len(vals) {
		case 0:
			obj[k] = ""
		case 1:
			obj[k] = vals[0]
		default:
			obj[k] = vals
		}
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		encoded = []byte("{}")
	}
	return rawURL + ":" + string(encoded)
}

type cacheEntry struct {
	data     []byte
	storedAt time.Time
	ttl      time.Duration
}

// MemoryCache is an in-process Cache. Expired entries are evicted lazily
// when read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryCache constructs a MemoryCache. now defaults to time.Now.
func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > entry.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{data: buf, storedAt: c.now(), ttl: ttl}
}

func (c *MemoryCache) Invalidate(_ context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pattern == "" {
		c.entries = make(map[string]cacheEntry)
		return
	}
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (NopCache) Set(context.Context, string, []byte, time.Duration) {}
func (NopCache) Invalidate(context.Context, string)                 {}
