// Package cache holds fully rendered index documents in Redis so a hit
// requires no store query and no re-rendering. It is an accelerator
// only: the metadata store stays authoritative and every cache failure
// degrades to a fresh read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "sol:simple:" // sol:simple:{project|_index_}:{api-version}:{format}
	indexName = "_index_"
)

// Document is a rendered protocol document plus the content type it
// was rendered for.
type Document struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a cache. The TTL is a backstop against missed
// invalidation; writes invalidate explicitly.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func ProjectKey(normalized, apiVersion, format string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, normalized, apiVersion, format)
}

func IndexKey(apiVersion, format string) string {
	return ProjectKey(indexName, apiVersion, format)
}

// Get returns the cached document for key, or ok=false on a miss. Any
// decode failure counts as a miss so stale or partial data is never
// served.
func (c *Cache) Get(ctx context.Context, key string) (*Document, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, nil
	}
	return &doc, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// InvalidateProject removes every cached rendering of one project's
// page, across all api versions and formats.
func (c *Cache) InvalidateProject(ctx context.Context, normalized string) error {
	return c.invalidatePrefix(ctx, fmt.Sprintf("%s%s:*", keyPrefix, normalized))
}

// InvalidateIndex removes every cached rendering of the root index.
func (c *Cache) InvalidateIndex(ctx context.Context) error {
	return c.invalidatePrefix(ctx, fmt.Sprintf("%s%s:*", keyPrefix, indexName))
}

func (c *Cache) invalidatePrefix(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
