// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"domain-copilot-api/pkg/errors"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Recovery Panic 恢复中间件。
// 处理器在解析出项目名后会把它写进请求 context，因此恢复日志里带有 project_name。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			metrics.HTTPPanicsTotal.WithLabelValues(path).Inc()

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"path", path,
				"method", c.Request.Method,
				"stack", string(debug.Stack()),
			)

			// 细节只进日志
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":    errors.ErrInternalError.Message,
				"code":     errors.ErrInternalError.Code,
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
