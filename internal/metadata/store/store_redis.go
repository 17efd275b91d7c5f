package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shebuilds/internal/metadata/metrics"
	"shebuilds/internal/metadata/models"
)

const redisDocumentKeyPrefix = "metadata:doc:"

// RedisCache persists metadata documents in Redis with TTL-based eviction.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed document cache; metrics may be nil.
func NewRedisCache(client *redis.Client, cacheTTL time.Duration, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:   client,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

// Find loads a cached document by metadata URI.
//
// Errors: returns ErrNotFound on cache miss; wraps Redis or JSON decode errors.
func (c *RedisCache) Find(ctx context.Context, uri string) (*models.Document, error) {
	start := time.Now()
	data, err := c.client.Get(ctx, documentKey(uri)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.RecordCacheMiss(time.Since(start).Seconds())
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find metadata cache: %w", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode metadata cache: %w", err)
	}
	c.metrics.RecordCacheHit(time.Since(start).Seconds())
	return &doc, nil
}

// Save writes doc with the configured TTL, overwriting any existing entry.
func (c *RedisCache) Save(ctx context.Context, uri string, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("metadata document is required")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode metadata cache: %w", err)
	}
	if err := c.client.Set(ctx, documentKey(uri), payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save metadata cache: %w", err)
	}
	return nil
}

func documentKey(uri string) string {
	return redisDocumentKeyPrefix + uri
}
