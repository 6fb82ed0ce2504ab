// Package middleware 提供 HTTP 中间件
package middleware

import (
	"domain-copilot-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 64
)

// RequestID 请求 ID 注入中间件，同时把客户端 IP 放进日志上下文。
// 客户端传入的 ID 只在形如 token 时沿用，否则重新生成，避免把任意内容写进日志。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(string(logger.RequestIDKey), requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		ctx = logger.WithContext(ctx, logger.ClientIPKey, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}
