//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/application/project"
	"domain-copilot-api/internal/config"
	"domain-copilot-api/internal/infrastructure/llm"
	"domain-copilot-api/internal/interfaces/http/handler"
	"domain-copilot-api/internal/interfaces/http/router"
	workflowport "domain-copilot-api/internal/workflow/port"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeStore 初始化项目存储（用于 job-worker）
func InitializeStore(ctx context.Context, cfg *config.Config) (*project.Store, func(), error) {
	wire.Build(StoreSet)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StoreSet,
		ModelingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StoreSet 存储层提供者集合
var StoreSet = wire.NewSet(
	ProvidePostgresClientOptional,
	ProvideProjectRepository,
	ProvideRedisClientOptional,
	ProvideKVCache,
	ProvideProjectStateCache,
	ProvideEventPublisher,
	ProvideProjectStore,
)

// ModelingSet 建模流程提供者集合
var ModelingSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(workflowport.ChatModelFactory), new(*llm.EinoFactory)),
	ProvideGenerationConfig,
	modeling.NewEinoGateway,
	wire.Bind(new(modeling.Gateway), new(*modeling.EinoGateway)),
	modeling.NewEinoSynthesizer,
	wire.Bind(new(modeling.Synthesizer), new(*modeling.EinoSynthesizer)),
	ProvideTranscriptCompactor,
	wire.Bind(new(modeling.ProjectStore), new(*project.Store)),
	modeling.NewOrchestrator,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	wire.Bind(new(handler.TurnHandler), new(*modeling.Orchestrator)),
	wire.Bind(new(handler.ProjectService), new(*project.Store)),
	handler.NewModelingHandler,
	handler.NewProjectHandler,
	ProvideHealthHandler,
	ProvideRateLimiter,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
