// Package middleware 提供 HTTP 中间件
package middleware

import (
	"time"

	"domain-copilot-api/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 跨域中间件，未配置的字段使用前端开发时的宽松默认值
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{"GET", "POST", "OPTIONS"}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Origin", "Content-Type", RequestIDHeader}
	}

	c := cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  methods,
		AllowHeaders:  headers,
		ExposeHeaders: []string{RequestIDHeader, "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	}
	// 通配源不能与凭证同时使用
	if !(len(origins) == 1 && origins[0] == "*") {
		c.AllowCredentials = true
	}
	return cors.New(c)
}
