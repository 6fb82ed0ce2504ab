// Package cache 提供进程内缓存以及基于 KVCache 的项目状态缓存
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/pkg/metrics"
)

const lruLabel = "lru"

type lruEntry struct {
	value     []byte
	expiresAt time.Time
}

// LRU 进程内 LRU 缓存，条目按各自 TTL 过期
type LRU struct {
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

// NewLRU 创建容量为 size 的 LRU 缓存
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{cache: c, now: time.Now}, nil
}

var _ repository.KVCache = (*LRU)(nil)

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := l.cache.Get(key)
	if !ok {
		metrics.CacheLookupTotal.WithLabelValues(lruLabel, "miss").Inc()
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !l.now().Before(e.expiresAt) {
		l.cache.Remove(key)
		metrics.CacheLookupTotal.WithLabelValues(lruLabel, "miss").Inc()
		return nil, false, nil
	}
	metrics.CacheLookupTotal.WithLabelValues(lruLabel, "hit").Inc()
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set ttl <= 0 表示不过期（仅受容量淘汰）
func (l *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = l.now().Add(ttl)
	}
	l.cache.Add(key, e)
	return nil
}

func (l *LRU) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		l.cache.Remove(k)
	}
	return nil
}

// Len 当前条目数
func (l *LRU) Len() int {
	return l.cache.Len()
}
