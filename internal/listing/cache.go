package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LabelCache caches resolved foreign-key labels between page loads. Lookups
// are keyed per binding and per key value, so partial hits reduce the size
// of the batched upstream call.
type LabelCache interface {
	// Get returns the cached labels for the given keys. Missing keys are
	// simply absent from the result.
	Get(ctx context.Context, binding string, keys []string) (map[string]string, error)

	// Put stores resolved labels with the cache TTL.
	Put(ctx context.Context, binding string, labels map[string]string) error
}

// FormatBindingKey builds the cache namespace for one foreign-key binding.
func FormatBindingKey(modelName, keyField, labelField string) string {
	return fmt.Sprintf("fk:%s:%s:%s", modelName, keyField, labelField)
}

// --- MemoryLabelCache ---

// MemoryLabelCache is an in-process LabelCache with TTL and a hard entry
// limit. Suitable for single-instance deployments and tests.
type MemoryLabelCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.RWMutex
	entries map[string]memLabel
}

type memLabel struct {
	label     string
	expiresAt time.Time
}

// NewMemoryLabelCache creates a memory cache.
func NewMemoryLabelCache(ttl time.Duration, maxEntries int) *MemoryLabelCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryLabelCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]memLabel),
	}
}

func (c *MemoryLabelCache) Get(_ context.Context, binding string, keys []string) (map[string]string, error) {
	now := time.Now()
	hits := make(map[string]string)

	c.mu.RLock()
	for _, key := range keys {
		if e, ok := c.entries[binding+"/"+key]; ok && now.Before(e.expiresAt) {
			hits[key] = e.label
		}
	}
	c.mu.RUnlock()
	return hits, nil
}

func (c *MemoryLabelCache) Put(_ context.Context, binding string, labels map[string]string) error {
	expires := time.Now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, label := range labels {
		if len(c.entries) >= c.maxEntries {
			c.evictExpiredLocked()
			if len(c.entries) >= c.maxEntries {
				break
			}
		}
		c.entries[binding+"/"+key] = memLabel{label: label, expiresAt: expires}
	}
	return nil
}

func (c *MemoryLabelCache) evictExpiredLocked() {
	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of entries, including expired ones. For testing.
func (c *MemoryLabelCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// --- RedisLabelCache ---

// RedisLabelCache is a Redis-backed LabelCache for multi-instance
// deployments.
type RedisLabelCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisLabelCache creates a Redis-backed cache.
func NewRedisLabelCache(client redis.Cmdable, ttl time.Duration) *RedisLabelCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLabelCache{client: client, ttl: ttl}
}

// HealthCheck pings Redis. Used by the readiness endpoint.
func (c *RedisLabelCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLabelCache) Get(ctx context.Context, binding string, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}

	fields := make([]string, len(keys))
	for i, key := range keys {
		fields[i] = binding + "/" + key
	}

	values, err := c.client.MGet(ctx, fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	hits := make(map[string]string)
	for i, v := range values {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var label string
		if err := json.Unmarshal([]byte(raw), &label); err != nil {
			continue
		}
		hits[keys[i]] = label
	}
	return hits, nil
}

func (c *RedisLabelCache) Put(ctx context.Context, binding string, labels map[string]string) error {
	if len(labels) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for key, label := range labels {
		data, err := json.Marshal(label)
		if err != nil {
			return fmt.Errorf("marshal label: %w", err)
		}
		pipe.Set(ctx, binding+"/"+key, data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}
