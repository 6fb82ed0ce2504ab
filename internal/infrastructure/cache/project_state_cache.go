package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/pkg/logger"
)

const (
	projectStateKeyPrefix = "project:state:"
	projectStampKeyPrefix = "project:stamp:"
)

// ProjectStateCache 以 JSON 形式把项目（含全部版本）缓存在 KVCache 中。
// 缓存失败只记录日志，调用方总能回落到仓储读取。
//
// 每个项目有一个失效戳，Invalidate 会换新戳；条目记录写入时的戳，
// 戳不一致的条目视为未命中。戳与条目在同一个 KVCache 里，多进程共享同一 Redis 时同样成立。
type ProjectStateCache struct {
	kv  repository.KVCache
	ttl time.Duration
}

// NewProjectStateCache 创建项目状态缓存
func NewProjectStateCache(kv repository.KVCache, ttl time.Duration) *ProjectStateCache {
	return &ProjectStateCache{kv: kv, ttl: ttl}
}

var _ repository.ProjectStateCache = (*ProjectStateCache)(nil)

type stampedProject struct {
	Stamp   string          `json:"stamp"`
	Project *entity.Project `json:"project"`
}

// ProjectStateKey 项目状态缓存键
func ProjectStateKey(name string) string {
	return projectStateKeyPrefix + name
}

// ProjectStampKey 项目失效戳缓存键
func ProjectStampKey(name string) string {
	return projectStampKeyPrefix + name
}

// stampTTL 戳比条目活得久；戳过期后会换新戳，旧条目随之作废
func (c *ProjectStateCache) stampTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return 2 * c.ttl
}

// currentStamp 读取当前失效戳，不存在时生成一个。返回空串表示缓存不可用
func (c *ProjectStateCache) currentStamp(ctx context.Context, name string) string {
	raw, ok, err := c.kv.Get(ctx, ProjectStampKey(name))
	if err != nil {
		logger.Warn(ctx, "project stamp get failed", "project_name", name, "error", err.Error())
		return ""
	}
	if ok && len(raw) > 0 {
		return string(raw)
	}
	return c.renewStamp(ctx, name)
}

func (c *ProjectStateCache) renewStamp(ctx context.Context, name string) string {
	stamp := uuid.NewString()
	if err := c.kv.Set(ctx, ProjectStampKey(name), []byte(stamp), c.stampTTL()); err != nil {
		logger.Warn(ctx, "project stamp set failed", "project_name", name, "error", err.Error())
		return ""
	}
	return stamp
}

func (c *ProjectStateCache) Get(ctx context.Context, name string) (*entity.Project, string, bool) {
	stamp := c.currentStamp(ctx, name)
	if stamp == "" {
		return nil, "", false
	}

	raw, ok, err := c.kv.Get(ctx, ProjectStateKey(name))
	if err != nil {
		logger.Warn(ctx, "project state cache get failed", "project_name", name, "error", err.Error())
		return nil, stamp, false
	}
	if !ok {
		return nil, stamp, false
	}

	var entry stampedProject
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.Warn(ctx, "project state cache decode failed", "project_name", name, "error", err.Error())
		_ = c.kv.Delete(ctx, ProjectStateKey(name))
		return nil, stamp, false
	}
	if entry.Stamp != stamp {
		// 条目写入后项目已被修改
		return nil, stamp, false
	}
	p := entry.Project
	if p == nil || p.Name != name || len(p.Versions) == 0 {
		return nil, stamp, false
	}
	return p, stamp, true
}

func (c *ProjectStateCache) Set(ctx context.Context, project *entity.Project, token string) {
	if project == nil || project.Name == "" || token == "" {
		return
	}
	raw, err := json.Marshal(stampedProject{Stamp: token, Project: project})
	if err != nil {
		logger.Warn(ctx, "project state cache encode failed", "project_name", project.Name, "error", err.Error())
		return
	}
	if err := c.kv.Set(ctx, ProjectStateKey(project.Name), raw, c.ttl); err != nil {
		logger.Warn(ctx, "project state cache set failed", "project_name", project.Name, "error", err.Error())
	}
}

// Invalidate 先换戳再删条目：换戳让在途的回填作废，删条目释放空间
func (c *ProjectStateCache) Invalidate(ctx context.Context, names ...string) {
	if len(names) == 0 {
		return
	}
	keys := make([]string, len(names))
	for i, n := range names {
		c.renewStamp(ctx, n)
		keys[i] = ProjectStateKey(n)
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		logger.Warn(ctx, "project state cache invalidate failed", "projects", names, "error", err.Error())
	}
}
