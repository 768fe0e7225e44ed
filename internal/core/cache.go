package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MappingCache stores resolved column mappings keyed by label set and
// vocabulary. Invalidate drops every entry; the mapper calls it when the
// alias table changes.
type MappingCache interface {
	Get(ctx context.Context, key string) (ColumnMapping, bool, error)
	Set(ctx context.Context, key string, m ColumnMapping) error
	Invalidate(ctx context.Context) error
}

// MappingCacheKey derives a stable cache key.
func MappingCacheKey(labels, vocabulary []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(labels, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(vocabulary, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryMappingCache is a process-local MappingCache.
type MemoryMappingCache struct {
	mu      sync.RWMutex
	entries map[string]ColumnMapping
}

func NewMemoryMappingCache() *MemoryMappingCache {
	return &MemoryMappingCache{entries: make(map[string]ColumnMapping)}
}

func (c *MemoryMappingCache) Get(_ context.Context, key string) (ColumnMapping, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.entries[key]
	return m, ok, nil
}

func (c *MemoryMappingCache) Set(_ context.Context, key string, m ColumnMapping) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = m
	return nil
}

func (c *MemoryMappingCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ColumnMapping)
	return nil
}

// Len returns the number of cached mappings.
func (c *MemoryMappingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisMappingCache shares mappings between processes through one Redis
// hash, so Invalidate is a single DEL.
type RedisMappingCache struct {
	client *redis.Client
	hash   string
	ttl    time.Duration
}

// NewRedisMappingCache connects using a redis:// URL.
func NewRedisMappingCache(url, hash string, ttl time.Duration) (*RedisMappingCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisMappingCache{client: redis.NewClient(opts), hash: hash, ttl: ttl}, nil
}

func (c *RedisMappingCache) Get(ctx context.Context, key string) (ColumnMapping, bool, error) {
	val, err := c.client.HGet(ctx, c.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return ColumnMapping{}, false, nil
	}
	if err != nil {
		return ColumnMapping{}, false, fmt.Errorf("redis hget: %w", err)
	}
	var m ColumnMapping
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return ColumnMapping{}, false, fmt.Errorf("decode cached mapping: %w", err)
	}
	return m, true, nil
}

func (c *RedisMappingCache) Set(ctx context.Context, key string, m ColumnMapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.hash, key, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	if c.ttl > 0 {
		if err := c.client.Expire(ctx, c.hash, c.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}
	return nil
}

func (c *RedisMappingCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.hash).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisMappingCache) Close() error {
	return c.client.Close()
}
