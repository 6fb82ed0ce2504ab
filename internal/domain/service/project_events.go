package service

import (
	"context"

	"domain-copilot-api/internal/domain/entity"
)

// ProjectEventPublisher 发布项目变更事件。
// 约定：实现应为 best-effort，发布失败不影响已提交的写操作。
type ProjectEventPublisher interface {
	PublishProjectEvent(ctx context.Context, evt *entity.ProjectEvent) error
}

// NopProjectEventPublisher 不发布任何事件
type NopProjectEventPublisher struct{}

func (NopProjectEventPublisher) PublishProjectEvent(context.Context, *entity.ProjectEvent) error {
	return nil
}
