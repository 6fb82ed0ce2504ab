// Package quality 消费项目变更事件：评估最新图的质量并预热状态缓存
package quality

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"domain-copilot-api/internal/application/modeling"
	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

// StateReader 读取项目最新状态，读取时顺带回填缓存
type StateReader interface {
	FetchLatest(ctx context.Context, name string) (*entity.ProjectState, error)
}

// Monitor 项目事件处理器
type Monitor struct {
	states StateReader
}

// NewMonitor 创建事件处理器
func NewMonitor(states StateReader) *Monitor {
	return &Monitor{states: states}
}

// HandleEvent 处理一条项目事件。
// 事件到达时项目可能已被改名或撤销，读不到时直接跳过，不重试。
func (m *Monitor) HandleEvent(ctx context.Context, evt *entity.ProjectEvent) error {
	if evt == nil || strings.TrimSpace(evt.ProjectName) == "" {
		return errors.New("project event without project name")
	}
	ctx = logger.WithProject(ctx, evt.ProjectName)

	state, err := m.states.FetchLatest(ctx, evt.ProjectName)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			logger.Info(ctx, "project gone before event was handled", "event", string(evt.Type))
			return nil
		}
		return fmt.Errorf("fetch project %q: %w", evt.ProjectName, err)
	}

	switch evt.Type {
	case entity.ProjectEventVersionAppended:
		m.observeDiagram(ctx, state)
	case entity.ProjectEventCreated, entity.ProjectEventVersionUndone, entity.ProjectEventRenamed:
		logger.Debug(ctx, "project state cache warmed", "event", string(evt.Type), "version", state.Version)
	default:
		logger.Warn(ctx, "unknown project event type", "event", string(evt.Type))
	}
	return nil
}

func (m *Monitor) observeDiagram(ctx context.Context, state *entity.ProjectState) {
	if entity.IsPlaceholderDiagram(state.Diagram) {
		return
	}
	report := modeling.AnalyzeQuality(state.Diagram, state.Description)
	metrics.DiagramRelationshipCount.Observe(float64(report.RelationshipCount))
	if report.NeedsRefinement {
		metrics.DiagramNeedsRefinementTotal.Inc()
		logger.Info(ctx, "diagram needs refinement",
			"version", state.Version,
			"relationships", report.RelationshipCount,
			"feedback", report.Feedback,
		)
	}
}
