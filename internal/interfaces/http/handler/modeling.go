package handler

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/interfaces/http/dto"
	"domain-copilot-api/pkg/errors"
	"domain-copilot-api/pkg/logger"
)

// ModelingHandler 对话建模处理器
type ModelingHandler struct {
	turns    TurnHandler
	synth    modeling.Synthesizer
	projects ProjectService
}

// NewModelingHandler 创建对话建模处理器
func NewModelingHandler(turns TurnHandler, synth modeling.Synthesizer, projects ProjectService) *ModelingHandler {
	return &ModelingHandler{
		turns:    turns,
		synth:    synth,
		projects: projects,
	}
}

// Chat 处理一轮用户发言
// @Summary 对话
// @Tags Modeling
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "用户发言"
// @Success 200 {object} dto.ModelTurnResponse
// @Success 200 {object} dto.ConversationTurnResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /chat [post]
func (h *ModelingHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	projectName := strings.TrimSpace(req.ProjectName)
	if message == "" {
		dto.BadRequest(c, "User input is required")
		return
	}
	if projectName == "" {
		dto.BadRequest(c, "Project name is required")
		return
	}
	withProject(c, projectName)

	res, err := h.turns.HandleTurn(c.Request.Context(), projectName, message)
	if err != nil {
		writeStoreError(c, err, projectName, "chat turn")
		return
	}

	if res.Route.IsModelRoute() {
		dto.OK(c, dto.ModelTurnResponse{
			DomainModelDescription: res.Description,
			PlantUML:               res.Diagram,
			Suggestion:             res.Reply,
		})
		return
	}
	dto.OK(c, dto.ConversationTurnResponse{
		Response:               res.Reply,
		History:                dto.ToChatHistory(res.Transcript),
		DomainModelDescription: res.Description,
		PlantUML:               res.Diagram,
	})
}

// GenerateUML 直接由描述生成 PlantUML，不写入版本
// @Summary 生成 PlantUML
// @Tags Modeling
// @Accept json
// @Produce json
// @Param body body dto.GenerateUMLRequest true "领域模型描述"
// @Success 200 {object} dto.GenerateUMLResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /generate_uml [post]
func (h *ModelingHandler) GenerateUML(c *gin.Context) {
	var req dto.GenerateUMLRequest
	if !bindJSON(c, &req) {
		return
	}
	text := strings.TrimSpace(req.DomainModelDescriptionText)
	if text == "" {
		dto.BadRequest(c, "Domain Model Description is required")
		return
	}

	diagram, err := h.synth.Synthesize(c.Request.Context(), text)
	if err != nil {
		if !stderrors.Is(err, modeling.ErrSynthesisFailed) {
			logger.Error(c.Request.Context(), "generate uml failed", err)
		} else {
			logger.Warn(c.Request.Context(), "generate uml failed", "error", err.Error())
		}
		dto.AppError(c, errors.ErrGenerationFailed.WithError(err))
		return
	}
	dto.OK(c, dto.GenerateUMLResponse{PlantUML: diagram})
}

// GetDomainModelDescription 返回项目当前的领域模型描述
// @Summary 当前领域模型描述
// @Tags Modeling
// @Produce json
// @Param project_name query string true "项目名"
// @Success 200 {object} dto.DomainModelDescriptionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /get_domain_model_descriptions [get]
func (h *ModelingHandler) GetDomainModelDescription(c *gin.Context) {
	projectName := strings.TrimSpace(c.Query("project_name"))
	if projectName == "" {
		dto.BadRequest(c, "Project name is required.")
		return
	}
	withProject(c, projectName)

	state, err := h.projects.FetchLatest(c.Request.Context(), projectName)
	if err != nil {
		writeStoreError(c, err, projectName, "get domain model description")
		return
	}
	dto.OK(c, dto.DomainModelDescriptionResponse{DomainModelDescription: state.Description})
}
