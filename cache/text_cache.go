// Package cache holds the converted-text caches used by the bookmark reader.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homereader/config"
	"homereader/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// TextCache 文本缓存，未命中或出错时返回 false
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// MemoryTextCache is a fixed-size LRU kept in process memory.
type MemoryTextCache struct {
	lru *lru.Cache[string, string]
}

// NewMemoryTextCache creates an LRU holding at most size entries.
func NewMemoryTextCache(size int) (*MemoryTextCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &MemoryTextCache{lru: c}, nil
}

func (m *MemoryTextCache) Get(_ context.Context, key string) (string, bool) {
	return m.lru.Get(key)
}

func (m *MemoryTextCache) Set(_ context.Context, key, value string) {
	m.lru.Add(key, value)
}

// Len returns the number of cached entries.
func (m *MemoryTextCache) Len() int {
	return m.lru.Len()
}

// RedisTextCache stores converted text in Redis with an expiry.
type RedisTextCache struct {
	client     *redis.Client
	expiration time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewRedisTextCache wraps an existing client.
func NewRedisTextCache(client *redis.Client, expiration time.Duration) *RedisTextCache {
	return &RedisTextCache{
		client:     client,
		expiration: expiration,
		maxRetries: 2,
		retryDelay: 100 * time.Millisecond,
	}
}

// Get 最多重试 maxRetries 次，最终失败视为未命中
func (r *RedisTextCache) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	delay := r.retryDelay
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		val, err := r.client.Get(ctx, key).Result()
		if err == nil {
			logger.Debug("[cache] 文本缓存命中", logger.String("key", key), logger.Int("attempt", attempt+1))
			return val, true
		}
		if errors.Is(err, redis.Nil) {
			return "", false
		}

		if attempt < r.maxRetries-1 {
			logger.Warn("[cache] 获取文本缓存失败，准备重试",
				logger.String("key", key),
				logger.Int("attempt", attempt+1),
				logger.ErrorField(err))
			select {
			case <-ctx.Done():
				return "", false
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}

		logger.Error("[cache] 获取文本缓存最终失败",
			logger.String("key", key),
			logger.Int("totalAttempts", r.maxRetries),
			logger.ErrorField(err))
	}
	return "", false
}

func (r *RedisTextCache) Set(ctx context.Context, key, value string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, key, value, r.expiration).Err(); err != nil {
		logger.Error("[cache] 设置文本缓存失败",
			logger.String("key", key),
			logger.Int("dataSize", len(value)),
			logger.ErrorField(err))
	}
}

// NewTextCache builds the cache selected by TEXT_CACHE. The returned close
// function releases the Redis connection when one was opened.
func NewTextCache(ctx context.Context, cfg *config.Config) (TextCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.TextCache {
	case "", "memory":
		c, err := NewMemoryTextCache(cfg.TextCacheSize)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("[cache] 使用内存文本缓存", logger.Int("size", cfg.TextCacheSize))
		return c, noop, nil
	case "redis":
		client, err := NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("[cache] 使用Redis文本缓存", logger.String("host", cfg.RedisHost))
		return NewRedisTextCache(client, 7*24*time.Hour), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown text cache %q", cfg.TextCache)
	}
}
