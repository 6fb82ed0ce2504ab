// Package memory 提供进程内的项目仓储实现，用于本地开发与测试
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
)

// ProjectRepository 基于互斥锁的内存仓储，所有条件写在同一把锁内完成
type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*entity.Project
	order    []string
}

// NewProjectRepository 创建内存项目仓储
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{projects: make(map[string]*entity.Project)}
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[project.Name]; ok {
		return repository.ErrDuplicateName
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	for _, v := range project.Versions {
		v.ID = uuid.NewString()
		v.ProjectID = project.ID
	}

	r.projects[project.Name] = cloneProject(project)
	r.order = append(r.order, project.ID)
	return nil
}

func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.projects)), nil
}

func (r *ProjectRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.projects[name]
	return ok, nil
}

// ListNames 按创建顺序返回项目名（重命名不改变顺序）
func (r *ProjectRepository) ListNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[string]string, len(r.projects))
	for name, p := range r.projects {
		byID[p.ID] = name
	}
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func (r *ProjectRepository) GetByName(ctx context.Context, name string) (*entity.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[name]
	if !ok {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (r *ProjectRepository) AppendVersion(ctx context.Context, name string, expectedCount int, version *entity.ProjectVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[name]
	if !ok {
		return repository.ErrProjectNotFound
	}
	if len(p.Versions) != expectedCount {
		return repository.ErrVersionConflict
	}

	version.ID = uuid.NewString()
	version.ProjectID = p.ID
	version.Version = expectedCount + 1
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now()
	}
	p.Versions = append(p.Versions, cloneVersion(version))
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepository) PopVersion(ctx context.Context, name string, expectedCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[name]
	if !ok {
		return repository.ErrProjectNotFound
	}
	if len(p.Versions) != expectedCount || expectedCount == 0 {
		return repository.ErrVersionConflict
	}
	p.Versions = p.Versions[:expectedCount-1]
	p.UpdatedAt = time.Now()
	return nil
}

func (r *ProjectRepository) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// 先查新名占用，再查旧名存在：两者同时成立时返回冲突
	if _, taken := r.projects[newName]; taken {
		return repository.ErrDuplicateName
	}
	p, ok := r.projects[oldName]
	if !ok {
		return repository.ErrProjectNotFound
	}
	delete(r.projects, oldName)
	p.Name = newName
	p.UpdatedAt = time.Now()
	r.projects[newName] = p
	return nil
}

func cloneProject(p *entity.Project) *entity.Project {
	out := *p
	out.Versions = make([]*entity.ProjectVersion, len(p.Versions))
	for i, v := range p.Versions {
		out.Versions[i] = cloneVersion(v)
	}
	return &out
}

func cloneVersion(v *entity.ProjectVersion) *entity.ProjectVersion {
	out := *v
	if v.UserInput != nil {
		out.UserInput = entity.StringPtr(*v.UserInput)
	}
	if v.AssistantReply != nil {
		out.AssistantReply = entity.StringPtr(*v.AssistantReply)
	}
	return &out
}
