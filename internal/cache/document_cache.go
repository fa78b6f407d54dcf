package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/document"
)

const documentKeyPrefix = "document:"

// DocumentKey 返回聚合缓存的 Redis key。
func DocumentKey(id string) string {
	return documentKeyPrefix + id
}

// DocumentCache 在 Redis 中缓存渲染后的文档聚合。任何写入之后都必须 Invalidate。
type DocumentCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewDocumentCache(client redis.UniversalClient, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DocumentCache{client: client, ttl: ttl}
}

// Get 命中时返回 (doc, true, nil)；未命中返回 (nil, false, nil)。
func (c *DocumentCache) Get(ctx context.Context, id string) (*document.Document, bool, error) {
	raw, err := c.client.Get(ctx, DocumentKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached document %s: %w", id, err)
	}

	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		// 损坏的条目直接丢弃
		_ = c.client.Del(ctx, DocumentKey(id)).Err()
		return nil, false, nil
	}
	return &doc, true, nil
}

func (c *DocumentCache) Set(ctx context.Context, doc *document.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	if err := c.client.Set(ctx, DocumentKey(doc.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *DocumentCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, DocumentKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate document %s: %w", id, err)
	}
	return nil
}
