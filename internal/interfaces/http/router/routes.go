// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册业务路由。路径保持扁平，与前端约定一致。
func RegisterRoutes(g *gin.RouterGroup, handlers Handlers, rateLimit gin.HandlerFunc) {
	// 对话建模，生成调用开销大，按客户端 IP 限流
	g.POST("/chat", rateLimit, handlers.Modeling.Chat)
	g.POST("/generate_uml", rateLimit, handlers.Modeling.GenerateUML)
	g.GET("/get_domain_model_descriptions", handlers.Modeling.GetDomainModelDescription)

	// 项目管理
	g.GET("/get_projects", handlers.Project.ListProjects)
	g.POST("/create_project", handlers.Project.CreateProject)
	g.POST("/rename_project", handlers.Project.RenameProject)
	g.GET("/get_project_data", handlers.Project.GetProjectData)
	g.POST("/save_project_data", handlers.Project.SaveProjectData)
	g.POST("/undo_project_change", handlers.Project.UndoProjectChange)
}
