// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"
)

// TxKey 事务上下文键类型
type TxKey struct{}

// Transactor 事务管理接口
type Transactor interface {
	// WithTransaction 在事务中执行操作
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// 存储层错误
var (
	// ErrProjectNotFound 项目不存在
	ErrProjectNotFound = errors.New("project not found")
	// ErrDuplicateName 项目名已被占用
	ErrDuplicateName = errors.New("project name already exists")
	// ErrVersionConflict 条件追加/弹出时版本数与预期不符
	ErrVersionConflict = errors.New("project version conflict")
)
