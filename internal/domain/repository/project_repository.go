package repository

import (
	"context"

	"domain-copilot-api/internal/domain/entity"
)

// ProjectRepository 项目版本历史的存储接口
//
// 所有写操作都是条件式的：调用方传入读取时看到的版本数，
// 实现必须在同一原子操作里校验该数量，不符时返回 ErrVersionConflict。
type ProjectRepository interface {
	// Create 写入项目及其种子版本，名称冲突返回 ErrDuplicateName
	Create(ctx context.Context, project *entity.Project) error
	// Count 项目总数
	Count(ctx context.Context) (int64, error)
	// ExistsByName 名称是否存在
	ExistsByName(ctx context.Context, name string) (bool, error)
	// ListNames 按创建时间升序列出项目名
	ListNames(ctx context.Context) ([]string, error)
	// GetByName 读取项目及全部版本（按版本号升序），不存在时返回 nil, nil
	GetByName(ctx context.Context, name string) (*entity.Project, error)
	// AppendVersion 当且仅当当前版本数等于 expectedCount 时追加 version
	AppendVersion(ctx context.Context, name string, expectedCount int, version *entity.ProjectVersion) error
	// PopVersion 当且仅当当前版本数等于 expectedCount 时删除最后一个版本
	PopVersion(ctx context.Context, name string, expectedCount int) error
	// Rename 重命名。新名占用返回 ErrDuplicateName（优先），否则旧名不存在返回 ErrProjectNotFound
	Rename(ctx context.Context, oldName, newName string) error
}

// ProjectStateCache 最新项目状态缓存
//
// Get 未命中时返回一个填充令牌，调用方读完仓储后带着它调用 Set。
// 令牌发放之后发生的 Invalidate（无论来自哪个进程）都会让这次 Set 写入的条目作废，
// 因此读到旧快照的慢读者无法把旧状态回填进缓存。
type ProjectStateCache interface {
	Get(ctx context.Context, name string) (project *entity.Project, token string, ok bool)
	// Set token 为空时不写入
	Set(ctx context.Context, project *entity.Project, token string)
	Invalidate(ctx context.Context, names ...string)
}
