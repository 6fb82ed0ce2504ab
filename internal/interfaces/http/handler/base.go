// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/application/project"
	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/internal/interfaces/http/dto"
	"domain-copilot-api/pkg/errors"
	"domain-copilot-api/pkg/logger"
)

// TurnHandler 处理一轮对话
type TurnHandler interface {
	HandleTurn(ctx context.Context, projectName, utterance string) (*modeling.TurnResult, error)
}

// ProjectService 项目管理能力
type ProjectService interface {
	Create(ctx context.Context) (string, error)
	FetchLatest(ctx context.Context, name string) (*entity.ProjectState, error)
	UndoLast(ctx context.Context, name string) (*entity.ProjectState, error)
	Rename(ctx context.Context, oldName, newName string) error
	List(ctx context.Context) ([]string, error)
	SaveSnapshot(ctx context.Context, name, description, diagram string) (*entity.ProjectVersion, error)
}

// writeStoreError 把存储层错误映射为 HTTP 响应，未知错误只记日志并返回通用 500
func writeStoreError(c *gin.Context, err error, projectName string, op string) {
	ctx := c.Request.Context()
	switch {
	case stderrors.Is(err, repository.ErrProjectNotFound):
		dto.NotFound(c, fmt.Sprintf("Project '%s' not found.", projectName))
	case stderrors.Is(err, repository.ErrDuplicateName):
		dto.Conflict(c, fmt.Sprintf("Project '%s' already exists.", projectName))
	case stderrors.Is(err, repository.ErrVersionConflict):
		dto.AppError(c, errors.ErrConflict)
	case stderrors.Is(err, project.ErrInvalidOperation):
		dto.AppError(c, errors.ErrUndoInitial)
	case stderrors.Is(err, project.ErrInvalidArgument):
		dto.BadRequest(c, "Project name is required.")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		logger.Warn(ctx, op+" aborted", "error", err.Error())
		dto.AppError(c, errors.ErrServiceUnavailable)
	case errors.IsAppError(err):
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, op+" failed", err)
		}
		dto.AppError(c, appErr)
	default:
		logger.Error(ctx, op+" failed", err)
		_ = c.Error(err)
		dto.InternalError(c)
	}
}

// withProject 把项目名写进请求 context，后续日志（含 panic 恢复）都带上 project_name
func withProject(c *gin.Context, name string) {
	c.Request = c.Request.WithContext(logger.WithProject(c.Request.Context(), name))
}

// bindJSON 解析请求体，失败时已写入 400
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		dto.AppError(c, errors.ErrInvalidParam.WithError(err))
		return false
	}
	return true
}

func isDuplicate(err error) bool {
	return stderrors.Is(err, repository.ErrDuplicateName)
}
