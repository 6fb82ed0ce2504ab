// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"domain-copilot-api/pkg/errors"
	"domain-copilot-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// Requests 窗口内允许的请求数
	Requests int
	// Window 滑动窗口长度
	Window time.Duration
	// KeyFunc 由客户端 IP 与路由构建限流 Key
	KeyFunc func(clientIP, endpoint string) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// remainingReporter 可选能力：报告窗口内剩余配额
type remainingReporter interface {
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimit 按客户端 IP 限流的中间件
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	// 如果未启用限流，返回空中间件
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	// 设置默认值
	if cfg.Requests <= 0 {
		cfg.Requests = 30
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(clientIP, endpoint string) string {
			return "ratelimit:" + endpoint + ":" + clientIP
		}
	}

	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		key := cfg.KeyFunc(c.ClientIP(), endpoint)

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":    errors.ErrTooManyRequests.Message,
				"code":     errors.ErrTooManyRequests.Code,
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		if r, ok := limiter.(remainingReporter); ok {
			if remaining, err := r.Remaining(c.Request.Context(), key, cfg.Requests, cfg.Window); err == nil {
				c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			}
		}

		c.Next()
	}
}
