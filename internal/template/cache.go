package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for templates, keyed per code and
// language. Cache failures never surface to callers; the store is the source
// of truth and a cold cache only costs a query.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *slog.Logger
}

// NewCache creates a Cache with the given TTL; non-positive defaults to 1h.
func NewCache(client redis.UniversalClient, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func cacheKey(code, language string) string {
	return fmt.Sprintf("template:%s:%s", code, language)
}

// Get returns the cached template and whether it was present.
func (c *Cache) Get(ctx context.Context, code, language string) (Template, bool) {
	raw, err := c.client.Get(ctx, cacheKey(code, language)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "template cache read failed", slog.Any("error", err))
		}
		return Template{}, false
	}

	var t Template
	if err := json.Unmarshal(raw, &t); err != nil {
		c.log.WarnContext(ctx, "corrupt template cache entry", slog.String("code", code), slog.Any("error", err))
		return Template{}, false
	}
	return t, true
}

// Set stores a template under its code and language.
func (c *Cache) Set(ctx context.Context, t Template) {
	raw, err := json.Marshal(t)
	if err != nil {
		c.log.WarnContext(ctx, "failed to marshal template for cache", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(t.Code, t.Language), raw, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "template cache write failed", slog.Any("error", err))
	}
}

// Invalidate drops every cached language variant of a template code.
func (c *Cache) Invalidate(ctx context.Context, code string) {
	pattern := fmt.Sprintf("template:%s:*", code)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.WarnContext(ctx, "template cache invalidation failed", slog.Any("error", err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.log.WarnContext(ctx, "template cache delete failed", slog.Any("error", err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
