package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

const cacheLabel = "redis"

// Cache 基于 Redis 的键值缓存，键统一加前缀
type Cache struct {
	client *Client
	prefix string
}

// NewCache 创建缓存服务
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

var _ repository.KVCache = (*Cache)(nil)

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// Get 获取缓存值
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.Get",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.client.rdb.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if IsNil(err) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			metrics.CacheLookupTotal.WithLabelValues(cacheLabel, "miss").Inc()
			return nil, false, nil
		}
		span.RecordError(err)
		metrics.CacheLookupTotal.WithLabelValues(cacheLabel, "error").Inc()
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	metrics.CacheLookupTotal.WithLabelValues(cacheLabel, "hit").Inc()
	return val, true, nil
}

// Set 设置缓存值
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Set",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
		))
	defer span.End()

	if err := c.client.rdb.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Delete",
		trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.rdb.Del(ctx, full...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
