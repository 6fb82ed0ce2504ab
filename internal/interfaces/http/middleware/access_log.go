package middleware

import (
	"time"

	"domain-copilot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AccessLogConfig 访问日志配置
type AccessLogConfig struct {
	// SkipPaths 不记录的路径（探针、指标）
	SkipPaths []string
}

// DefaultAccessLogSkipPaths 默认跳过的路径
var DefaultAccessLogSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// AccessLog 每个请求完成后记录一条结构化日志
func AccessLog(cfg AccessLogConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"user_agent", c.Request.UserAgent(),
			"body_size", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if status >= 500 {
			logger.Warn(c.Request.Context(), "api request failed", fields...)
			return
		}
		logger.Info(c.Request.Context(), "api request", fields...)
	}
}
