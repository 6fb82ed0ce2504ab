// Package router 提供 HTTP 路由配置
package router

import (
	"domain-copilot-api/internal/config"
	"domain-copilot-api/internal/infrastructure/persistence/redis"
	"domain-copilot-api/internal/interfaces/http/handler"
	"domain-copilot-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Health   *handler.HealthHandler
	Modeling *handler.ModelingHandler
	Project  *handler.ProjectHandler
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// New 创建新的路由器，limiter 为 nil 时不限流
func New(cfg *config.Config, handlers Handlers, limiter middleware.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine: engine,
		cfg:    cfg,
	}

	r.setupMiddleware()
	r.setupRoutes(handlers, limiter)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(r.cfg.Security.CORS))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(r.cfg.Observability.Metrics.Path))
	}

	r.engine.Use(middleware.AccessLog(middleware.AccessLogConfig{
		SkipPaths: append([]string{r.cfg.Observability.Metrics.Path}, middleware.DefaultAccessLogSkipPaths...),
	}))
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(handlers Handlers, limiter middleware.RateLimiter) {
	// 系统端点
	r.engine.GET("/health", handlers.Health.Health)
	r.engine.GET("/ready", handlers.Health.Ready)
	r.engine.GET("/live", handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	rl := r.cfg.Security.RateLimit
	rateLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:  rl.Enabled,
		Requests: rl.Requests,
		Window:   rl.Window,
		KeyFunc:  redis.BuildRateLimitKey,
	}, limiter)

	RegisterRoutes(r.engine.Group(""), handlers, rateLimit)
}
