package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"domain-copilot-api/internal/interfaces/http/dto"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projects ProjectService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(projects ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// ListProjects 按创建顺序列出项目名
// @Summary 获取项目列表
// @Tags Projects
// @Produce json
// @Success 200 {object} dto.ProjectListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /get_projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	names, err := h.projects.List(c.Request.Context())
	if err != nil {
		writeStoreError(c, err, "", "list projects")
		return
	}
	dto.OK(c, dto.ProjectListResponse{Projects: names})
}

// CreateProject 创建项目
// @Summary 创建项目
// @Description 自动分配 "Project N" 名称并写入种子版本
// @Tags Projects
// @Produce json
// @Success 201 {object} dto.CreateProjectResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /create_project [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	name, err := h.projects.Create(c.Request.Context())
	if err != nil {
		writeStoreError(c, err, name, "create project")
		return
	}
	dto.Created(c, dto.CreateProjectResponse{
		Message:     fmt.Sprintf("Project '%s' created successfully.", name),
		ProjectName: name,
	})
}

// RenameProject 重命名项目
// @Summary 重命名项目
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.RenameProjectRequest true "新旧名称"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /rename_project [post]
func (h *ProjectHandler) RenameProject(c *gin.Context) {
	var req dto.RenameProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	oldName := strings.TrimSpace(req.OldProjectName)
	newName := strings.TrimSpace(req.NewProjectName)
	if oldName == "" || newName == "" {
		dto.BadRequest(c, "Both old and new project names are required.")
		return
	}
	withProject(c, oldName)

	if err := h.projects.Rename(c.Request.Context(), oldName, newName); err != nil {
		name := oldName
		if isDuplicate(err) {
			name = newName
		}
		writeStoreError(c, err, name, "rename project")
		return
	}
	dto.OK(c, dto.MessageResponse{
		Message: fmt.Sprintf("Project renamed from '%s' to '%s' successfully.", oldName, newName),
	})
}

// GetProjectData 返回项目当前状态与重建的对话记录
// @Summary 获取项目数据
// @Tags Projects
// @Produce json
// @Param project_name query string true "项目名"
// @Success 200 {object} dto.ProjectDataResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /get_project_data [get]
func (h *ProjectHandler) GetProjectData(c *gin.Context) {
	projectName := strings.TrimSpace(c.Query("project_name"))
	if projectName == "" {
		dto.BadRequest(c, "Project name is required.")
		return
	}
	withProject(c, projectName)

	state, err := h.projects.FetchLatest(c.Request.Context(), projectName)
	if err != nil {
		writeStoreError(c, err, projectName, "get project data")
		return
	}
	dto.OK(c, dto.ToProjectDataResponse(state))
}

// SaveProjectData 保存手工编辑的描述与图为新版本
// @Summary 保存项目数据
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.SaveProjectRequest true "项目数据"
// @Success 200 {object} dto.SaveProjectResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /save_project_data [post]
func (h *ProjectHandler) SaveProjectData(c *gin.Context) {
	var req dto.SaveProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	projectName := strings.TrimSpace(req.ProjectName)
	if projectName == "" {
		dto.BadRequest(c, "Project name is required.")
		return
	}
	withProject(c, projectName)

	v, err := h.projects.SaveSnapshot(c.Request.Context(), projectName, req.DomainModelDescription, req.PlantUML)
	if err != nil {
		writeStoreError(c, err, projectName, "save project data")
		return
	}
	dto.OK(c, dto.SaveProjectResponse{
		Message: fmt.Sprintf("Version %d for project '%s' saved successfully.", v.Version, projectName),
		Version: v.Version,
	})
}

// UndoProjectChange 撤销最后一个版本
// @Summary 撤销
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body dto.ProjectNameRequest true "项目名"
// @Success 200 {object} dto.ProjectDataResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /undo_project_change [post]
func (h *ProjectHandler) UndoProjectChange(c *gin.Context) {
	var req dto.ProjectNameRequest
	if !bindJSON(c, &req) {
		return
	}
	projectName := strings.TrimSpace(req.ProjectName)
	if projectName == "" {
		dto.BadRequest(c, "Project name is required.")
		return
	}
	withProject(c, projectName)

	state, err := h.projects.UndoLast(c.Request.Context(), projectName)
	if err != nil {
		writeStoreError(c, err, projectName, "undo project change")
		return
	}
	dto.OK(c, dto.ToProjectDataResponse(state))
}
