package repository

import (
	"context"
	"time"
)

// KVCache 字节级键值缓存，Redis 与进程内 LRU 均实现该接口
type KVCache interface {
	// Get 命中时返回 (value, true, nil)，未命中返回 (nil, false, nil)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
