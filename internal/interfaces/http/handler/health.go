// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 可探测的下游依赖
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 就绪检查中的一个依赖
type Dependency struct {
	Name    string
	Checker HealthChecker
	// Required 为 false 时失败只标记 degraded，不影响就绪态
	Required bool
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	deps    []Dependency
}

// NewHealthHandler 创建健康检查处理器，未启用的依赖不需要传入
func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	sorted := make([]Dependency, 0, len(deps))
	for _, d := range deps {
		if d.Checker != nil {
			sorted = append(sorted, d)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &HealthHandler{version: version, deps: sorted}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 逐个探测已启用的依赖，必需依赖失败时返回 503
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.deps))
	ready := true
	for _, d := range h.deps {
		start := time.Now()
		err := d.Checker.HealthCheck(ctx)
		check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Error = err.Error()
			if d.Required {
				check.Status = "error"
				ready = false
			} else {
				check.Status = "degraded"
			}
		}
		checks[d.Name] = check
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
