// Package project 实现项目版本历史的应用服务：命名、复制前值、条件追加与撤销
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
	"domain-copilot-api/internal/domain/service"
	"domain-copilot-api/pkg/logger"
	"domain-copilot-api/pkg/metrics"
)

var (
	// ErrInvalidOperation 操作在当前状态下不允许（例如撤销种子版本）
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidArgument 参数缺失或为空
	ErrInvalidArgument = errors.New("invalid argument")
)

const defaultMaxRetries = 5

// Store 项目存储服务
type Store struct {
	repo       repository.ProjectRepository
	cache      repository.ProjectStateCache
	events     service.ProjectEventPublisher
	maxRetries int
}

// NewStore 创建项目存储服务，cache 与 events 可为 nil
func NewStore(repo repository.ProjectRepository, cache repository.ProjectStateCache, events service.ProjectEventPublisher, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if events == nil {
		events = service.NopProjectEventPublisher{}
	}
	return &Store{
		repo:       repo,
		cache:      cache,
		events:     events,
		maxRetries: maxRetries,
	}
}

// Create 分配 "Project N" 形式的新名称并写入种子版本
func (s *Store) Create(ctx context.Context) (name string, err error) {
	defer func() { observe("create", err) }()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		name, err = s.nextName(ctx)
		if err != nil {
			return "", err
		}

		err = s.repo.Create(ctx, entity.NewProject(name))
		if errors.Is(err, repository.ErrDuplicateName) {
			// 并发创建抢占了同一个名称
			metrics.StoreOperationTotal.WithLabelValues("create", "retry").Inc()
			continue
		}
		if err != nil {
			return "", err
		}

		logger.Info(ctx, "project created", "project_name", name)
		s.publish(ctx, entity.ProjectEventCreated, name, "", 1)
		return name, nil
	}
	return "", fmt.Errorf("allocate project name: %w", repository.ErrDuplicateName)
}

func (s *Store) nextName(ctx context.Context) (string, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return "", err
	}
	for n := count + 1; ; n++ {
		candidate := fmt.Sprintf("Project %d", n)
		exists, err := s.repo.ExistsByName(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

// FetchLatest 返回当前状态与由全部版本重建的对话记录
func (s *Store) FetchLatest(ctx context.Context, name string) (state *entity.ProjectState, err error) {
	defer func() { observe("fetch_latest", err) }()

	p, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.State(), nil
}

// FetchCurrent 绕过缓存直接读仓储，供读完就要写入新版本的调用方使用
func (s *Store) FetchCurrent(ctx context.Context, name string) (state *entity.ProjectState, err error) {
	defer func() { observe("fetch_current", err) }()

	p, err := s.readRepo(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.State(), nil
}

// Get 返回项目及全部版本
func (s *Store) Get(ctx context.Context, name string) (*entity.Project, error) {
	return s.load(ctx, name)
}

func (s *Store) load(ctx context.Context, name string) (*entity.Project, error) {
	if s.cache == nil || strings.TrimSpace(name) == "" {
		return s.readRepo(ctx, name)
	}

	p, token, ok := s.cache.Get(ctx, name)
	if ok {
		return p, nil
	}
	// 令牌必须先于仓储读取取得，期间的失效会让回填作废
	p, err := s.readRepo(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p, token)
	return p, nil
}

func (s *Store) readRepo(ctx context.Context, name string) (*entity.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil || len(p.Versions) == 0 {
		return nil, repository.ErrProjectNotFound
	}
	return p, nil
}

// AppendVersion 追加一轮对话产生的新版本
func (s *Store) AppendVersion(ctx context.Context, name, userInput, assistantReply, description, diagram string) (v *entity.ProjectVersion, err error) {
	defer func() { observe("append_version", err) }()

	return s.appendVersion(ctx, name, &entity.ProjectVersion{
		UserInput:              entity.StringPtr(userInput),
		AssistantReply:         entity.StringPtr(assistantReply),
		DomainModelDescription: description,
		PlantUML:               diagram,
	})
}

// SaveSnapshot 保存手工编辑的描述与图：用户输入为空串，无助手回复
func (s *Store) SaveSnapshot(ctx context.Context, name, description, diagram string) (v *entity.ProjectVersion, err error) {
	defer func() { observe("save_snapshot", err) }()

	return s.appendVersion(ctx, name, &entity.ProjectVersion{
		UserInput:              entity.StringPtr(""),
		DomainModelDescription: description,
		PlantUML:               diagram,
	})
}

func (s *Store) appendVersion(ctx context.Context, name string, draft *entity.ProjectVersion) (*entity.ProjectVersion, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		// 写路径总是读仓储，缓存可能落后
		p, err := s.repo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, repository.ErrProjectNotFound
		}

		v := *draft
		v.ID = ""
		v.CreatedAt = time.Now()
		applyCopyForward(&v, p.Latest())

		expected := len(p.Versions)
		err = s.repo.AppendVersion(ctx, name, expected, &v)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.StoreVersionConflictTotal.Inc()
			logger.Debug(ctx, "append version conflict, retrying", "project_name", name, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.invalidate(ctx, name)
		s.publish(ctx, entity.ProjectEventVersionAppended, name, "", v.Version)
		return &v, nil
	}
	return nil, fmt.Errorf("append version to %q: %w", name, repository.ErrVersionConflict)
}

// applyCopyForward 描述或图为空时沿用上一版本的值，没有上一版本时使用种子占位
func applyCopyForward(v *entity.ProjectVersion, prev *entity.ProjectVersion) {
	if strings.TrimSpace(v.DomainModelDescription) == "" {
		if prev != nil && strings.TrimSpace(prev.DomainModelDescription) != "" {
			v.DomainModelDescription = prev.DomainModelDescription
		} else {
			v.DomainModelDescription = entity.SeedDescription
		}
	}
	if strings.TrimSpace(v.PlantUML) == "" {
		if prev != nil && strings.TrimSpace(prev.PlantUML) != "" {
			v.PlantUML = prev.PlantUML
		} else {
			v.PlantUML = entity.SeedDiagram
		}
	}
}

// UndoLast 删除最后一个版本，种子版本不可删除
func (s *Store) UndoLast(ctx context.Context, name string) (state *entity.ProjectState, err error) {
	defer func() { observe("undo_last", err) }()

	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidArgument
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		p, err := s.repo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if p == nil || len(p.Versions) == 0 {
			return nil, repository.ErrProjectNotFound
		}

		count := len(p.Versions)
		if count <= 1 {
			return nil, ErrInvalidOperation
		}

		err = s.repo.PopVersion(ctx, name, count)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.StoreVersionConflictTotal.Inc()
			continue
		}
		if err != nil {
			return nil, err
		}

		p.Versions = p.Versions[:count-1]
		s.invalidate(ctx, name)
		s.publish(ctx, entity.ProjectEventVersionUndone, name, "", count-1)
		logger.Info(ctx, "project version undone", "project_name", name, "version", count-1)
		return p.State(), nil
	}
	return nil, fmt.Errorf("undo %q: %w", name, repository.ErrVersionConflict)
}

// Rename 重命名项目
func (s *Store) Rename(ctx context.Context, oldName, newName string) (err error) {
	defer func() { observe("rename", err) }()

	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return ErrInvalidArgument
	}

	if err := s.repo.Rename(ctx, oldName, newName); err != nil {
		return err
	}

	s.invalidate(ctx, oldName, newName)
	s.publish(ctx, entity.ProjectEventRenamed, newName, oldName, 0)
	logger.Info(ctx, "project renamed", "old_name", oldName, "new_name", newName)
	return nil
}

// List 按创建时间返回项目名
func (s *Store) List(ctx context.Context) (names []string, err error) {
	defer func() { observe("list", err) }()

	names, err = s.repo.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Store) invalidate(ctx context.Context, names ...string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, names...)
	}
}

func (s *Store) publish(ctx context.Context, typ entity.ProjectEventType, name, prevName string, version int) {
	evt := &entity.ProjectEvent{
		Type:        typ,
		ProjectName: name,
		PrevName:    prevName,
		Version:     version,
		OccurredAt:  time.Now(),
	}
	if err := s.events.PublishProjectEvent(ctx, evt); err != nil {
		logger.Warn(ctx, "publish project event failed",
			"type", string(typ),
			"project_name", name,
			"error", err.Error(),
		)
	}
}

func observe(op string, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrProjectNotFound):
		status = "not_found"
	case errors.Is(err, repository.ErrDuplicateName):
		status = "conflict"
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrInvalidArgument):
		status = "rejected"
	default:
		status = "error"
	}
	metrics.StoreOperationTotal.WithLabelValues(op, status).Inc()
}
