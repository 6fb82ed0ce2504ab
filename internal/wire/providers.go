package wire

import (
	"context"
	"fmt"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/application/project"
	"domain-copilot-api/internal/config"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/internal/domain/service"
	"domain-copilot-api/internal/infrastructure/cache"
	"domain-copilot-api/internal/infrastructure/messaging"
	"domain-copilot-api/internal/infrastructure/persistence/memory"
	"domain-copilot-api/internal/infrastructure/persistence/postgres"
	"domain-copilot-api/internal/infrastructure/persistence/redis"
	"domain-copilot-api/internal/interfaces/http/handler"
	"domain-copilot-api/internal/interfaces/http/middleware"
	"domain-copilot-api/pkg/logger"
)

const (
	storeDriverPostgres = "postgres"
	storeDriverMemory   = "memory"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient *postgres.Client
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClientOptional 仅 postgres 驱动时连接数据库
func ProvidePostgresClientOptional(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	switch cfg.Store.Driver {
	case storeDriverPostgres:
		return ProvidePostgresClient(cfg)
	case storeDriverMemory, "":
		logger.Warn(ctx, "using in-memory project store, data is lost on restart")
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// ProvideProjectRepository 按驱动选择仓储实现
func ProvideProjectRepository(pg *postgres.Client) repository.ProjectRepository {
	if pg == nil {
		return memory.NewProjectRepository()
	}
	return postgres.NewProjectRepository(pg)
}

// ProvideRedisClientOptional Redis 关闭时返回 nil，开启后连接失败直接报错
func ProvideRedisClientOptional(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideKVCache Redis 可用时共享缓存，否则使用进程内 LRU
func ProvideKVCache(cfg *config.Config, rc *redis.Client) (repository.KVCache, error) {
	if rc != nil {
		return redis.NewCache(rc, cfg.App.Name+":"), nil
	}
	return cache.NewLRU(cfg.Store.LocalCacheSize)
}

// ProvideProjectStateCache 项目最新状态缓存
func ProvideProjectStateCache(cfg *config.Config, kv repository.KVCache) repository.ProjectStateCache {
	return cache.NewProjectStateCache(kv, cfg.Store.StateCacheTTL)
}

// ProvideEventPublisher 开启 Redis Stream 时发布项目事件
func ProvideEventPublisher(cfg *config.Config, rc *redis.Client) service.ProjectEventPublisher {
	if rc == nil || !cfg.Messaging.RedisStream.Enabled {
		return service.NopProjectEventPublisher{}
	}
	return messaging.NewProducer(rc.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideProjectStore 项目存储
func ProvideProjectStore(cfg *config.Config, repo repository.ProjectRepository, stateCache repository.ProjectStateCache, events service.ProjectEventPublisher) *project.Store {
	return project.NewStore(repo, stateCache, events, cfg.Store.MaxRetries)
}

// ProvideGenerationConfig 生成调用参数
func ProvideGenerationConfig(cfg *config.Config) modeling.GenerationConfig {
	return modeling.GenerationConfig{
		Provider:      cfg.LLM.DefaultProvider,
		Timeout:       cfg.Generation.Timeout,
		MaxInputRunes: cfg.Generation.MaxInputRunes,
	}
}

// ProvideTranscriptCompactor 长对话压缩，摘要结果写入共享缓存
func ProvideTranscriptCompactor(cfg *config.Config, gateway modeling.Gateway, kv repository.KVCache) *modeling.TranscriptCompactor {
	return modeling.NewTranscriptCompactor(gateway, kv, modeling.CompactorConfig{
		MaxTurns:   cfg.Generation.MaxTranscriptTurns,
		KeepRecent: cfg.Generation.KeepRecentTurns,
		CacheTTL:   cfg.Generation.SummaryCacheTTL,
	})
}

// ProvideHealthHandler 只探测实际启用的依赖
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	var deps []handler.Dependency
	if pg != nil {
		deps = append(deps, handler.Dependency{Name: "postgres", Checker: pg, Required: true})
	}
	if rc != nil {
		deps = append(deps, handler.Dependency{Name: "redis", Checker: rc})
	}
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// ProvideRateLimiter Redis 关闭时不限流
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}
