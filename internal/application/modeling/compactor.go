package modeling

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

// CompactorConfig 对话压缩参数
type CompactorConfig struct {
	// MaxTurns 超过该轮数才压缩，<=0 表示不压缩
	MaxTurns int
	// KeepRecent 原样保留的最近轮数
	KeepRecent int
	CacheTTL   time.Duration
}

// TranscriptCompactor 长对话只用于分类输入时，把较早部分替换为摘要
type TranscriptCompactor struct {
	gateway Gateway
	cache   repository.KVCache
	cfg     CompactorConfig
	// 同一项目的并发轮次共享一次摘要生成
	group singleflight.Group
}

// NewTranscriptCompactor cache 可为 nil
func NewTranscriptCompactor(gateway Gateway, cache repository.KVCache, cfg CompactorConfig) *TranscriptCompactor {
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = 10
	}
	return &TranscriptCompactor{gateway: gateway, cache: cache, cfg: cfg}
}

// ClassifyInput 返回分类用的对话文本
func (c *TranscriptCompactor) ClassifyInput(ctx context.Context, projectName string, t *entity.Transcript) string {
	if c == nil || c.cfg.MaxTurns <= 0 || t.Len() <= c.cfg.MaxTurns {
		return t.Flatten()
	}

	older, recent := t.Split(c.cfg.KeepRecent)
	olderText := older.Flatten()
	key := summaryKey(projectName, older.Len(), olderText)

	summary, ok := c.cached(ctx, key)
	if !ok {
		v, _, _ := c.group.Do(key, func() (interface{}, error) {
			s := c.gateway.GenerateSummary(ctx, olderText)
			if !IsSentinel(s) && c.cache != nil {
				if err := c.cache.Set(ctx, key, []byte(s), c.cfg.CacheTTL); err != nil {
					logger.Warn(ctx, "summary cache set failed", "error", err.Error())
				}
			}
			return s, nil
		})
		summary = v.(string)
		if IsSentinel(summary) {
			return t.Flatten()
		}
	}

	return "Summary of the earlier conversation: " + summary + "\n" + recent.Flatten()
}

func (c *TranscriptCompactor) cached(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "summary cache get failed", "error", err.Error())
		return "", false
	}
	if !ok || len(raw) == 0 {
		metrics.CacheLookupTotal.WithLabelValues("summary", "miss").Inc()
		return "", false
	}
	metrics.CacheLookupTotal.WithLabelValues("summary", "hit").Inc()
	return string(raw), true
}

// summaryKey 以项目、轮数与内容摘要为键，撤销后再追加不会命中旧摘要
func summaryKey(projectName string, turns int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("summary:%s:%d:%s", projectName, turns, hex.EncodeToString(sum[:8]))
}
