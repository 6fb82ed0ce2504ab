// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"domain-copilot-api/internal/domain/entity"
	"domain-copilot-api/internal/domain/repository"
)

// ProjectRepository 项目仓储实现
type ProjectRepository struct {
	client *Client
	tx     *TxManager
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(client *Client) *ProjectRepository {
	return &ProjectRepository{client: client, tx: NewTxManager(client)}
}

var _ repository.ProjectRepository = (*ProjectRepository)(nil)

// Create 创建项目及其种子版本
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Create")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		tx := getDB(ctx, r.client.db)
		versions := project.Versions
		project.Versions = nil
		defer func() { project.Versions = versions }()

		if err := tx.Create(project).Error; err != nil {
			return err
		}
		for _, v := range versions {
			v.ProjectID = project.ID
		}
		if len(versions) == 0 {
			return nil
		}
		return tx.Create(&versions).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateName
		}
		span.RecordError(err)
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Count 项目总数
func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Count")
	defer span.End()

	var n int64
	if err := getDB(ctx, r.client.db).Model(&entity.Project{}).Count(&n).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// ExistsByName 名称是否已存在
func (r *ProjectRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ExistsByName")
	defer span.End()

	var n int64
	if err := getDB(ctx, r.client.db).Model(&entity.Project{}).Where("name = ?", name).Count(&n).Error; err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check project name: %w", err)
	}
	return n > 0, nil
}

// ListNames 按创建时间列出项目名
func (r *ProjectRepository) ListNames(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.ListNames")
	defer span.End()

	var names []string
	err := getDB(ctx, r.client.db).Model(&entity.Project{}).
		Order("created_at ASC, name ASC").
		Pluck("name", &names).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return names, nil
}

// GetByName 读取项目及全部版本
func (r *ProjectRepository) GetByName(ctx context.Context, name string) (*entity.Project, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.GetByName")
	defer span.End()

	var p entity.Project
	err := getDB(ctx, r.client.db).
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version ASC")
		}).
		First(&p, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// lockProject 在事务内锁定项目行并返回当前版本数
func lockProject(tx *gorm.DB, name string) (*entity.Project, int, error) {
	var p entity.Project
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, repository.ErrProjectNotFound
		}
		return nil, 0, err
	}

	var n int64
	if err := tx.Model(&entity.ProjectVersion{}).Where("project_id = ?", p.ID).Count(&n).Error; err != nil {
		return nil, 0, err
	}
	return &p, int(n), nil
}

// AppendVersion 条件追加版本
func (r *ProjectRepository) AppendVersion(ctx context.Context, name string, expectedCount int, version *entity.ProjectVersion) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.AppendVersion")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		tx := getDB(ctx, r.client.db)
		p, count, err := lockProject(tx, name)
		if err != nil {
			return err
		}
		if count != expectedCount {
			return repository.ErrVersionConflict
		}

		version.ProjectID = p.ID
		version.Version = count + 1
		if err := tx.Create(version).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repository.ErrVersionConflict
			}
			return err
		}
		return tx.Model(&entity.Project{}).Where("id = ?", p.ID).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		if isRepositoryError(err) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("failed to append project version: %w", err)
	}
	return nil
}

// PopVersion 条件删除最后一个版本
func (r *ProjectRepository) PopVersion(ctx context.Context, name string, expectedCount int) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.PopVersion")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		tx := getDB(ctx, r.client.db)
		p, count, err := lockProject(tx, name)
		if err != nil {
			return err
		}
		if count != expectedCount {
			return repository.ErrVersionConflict
		}

		res := tx.Where("project_id = ? AND version = ?", p.ID, count).Delete(&entity.ProjectVersion{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrVersionConflict
		}
		return tx.Model(&entity.Project{}).Where("id = ?", p.ID).Update("updated_at", time.Now()).Error
	})
	if err != nil {
		if isRepositoryError(err) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("failed to pop project version: %w", err)
	}
	return nil
}

// Rename 重命名项目
func (r *ProjectRepository) Rename(ctx context.Context, oldName, newName string) error {
	ctx, span := tracer.Start(ctx, "postgres.ProjectRepository.Rename")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		tx := getDB(ctx, r.client.db)

		// 先查新名占用，再锁旧项目：两者同时成立时返回冲突
		var n int64
		if err := tx.Model(&entity.Project{}).Where("name = ?", newName).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return repository.ErrDuplicateName
		}

		p, _, err := lockProject(tx, oldName)
		if err != nil {
			return err
		}

		return tx.Model(&entity.Project{}).Where("id = ?", p.ID).
			Updates(map[string]any{"name": newName, "updated_at": time.Now()}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateName
		}
		if isRepositoryError(err) {
			return err
		}
		span.RecordError(err)
		return fmt.Errorf("failed to rename project: %w", err)
	}
	return nil
}

func isRepositoryError(err error) bool {
	return errors.Is(err, repository.ErrProjectNotFound) ||
		errors.Is(err, repository.ErrDuplicateName) ||
		errors.Is(err, repository.ErrVersionConflict)
}
