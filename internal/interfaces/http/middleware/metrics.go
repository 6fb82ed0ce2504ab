// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"time"

	"domain-copilot-api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics Prometheus 指标采集中间件，skipPath 通常是指标端点自身
func Metrics(skipPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipPath != "" && c.Request.URL.Path == skipPath {
			c.Next()
			return
		}

		start := time.Now()
		// 未匹配路由统一归为一个标签值，避免路径基数失控
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		if reqSize := float64(c.Request.ContentLength); reqSize > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(reqSize)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(respSize)
		}
	}
}
