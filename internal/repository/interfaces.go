// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/next-dataset/internal/model"
)

// ========== DatasetStore 接口 ==========

// DatasetStore 数据集元信息访问接口
// 查询不到时返回 gorm.ErrRecordNotFound
type DatasetStore interface {
	Create(ctx context.Context, dataset *model.Dataset) error
	GetByID(ctx context.Context, id string) (*model.Dataset, error)
	GetByName(ctx context.Context, name string) (*model.Dataset, error)
	// GetByIDs 按给定顺序返回存在的数据集，不存在的 ID 被忽略
	GetByIDs(ctx context.Context, ids []string) ([]*model.Dataset, error)
	List(ctx context.Context) ([]*model.Dataset, error)
	ListNames(ctx context.Context) ([]model.DatasetName, error)
	Update(ctx context.Context, id string, fields DatasetUpdate) error
}

// DatasetUpdate 可修改的字段，nil 表示不修改
type DatasetUpdate struct {
	RootPath *string
	Tags     []string
	SetTags  bool
}

// ========== GroupStore 接口 ==========

// GroupStore 分组访问接口
type GroupStore interface {
	Create(ctx context.Context, group *model.DatasetGroup) error
	GetByID(ctx context.Context, id string) (*model.DatasetGroup, error)
	GetByName(ctx context.Context, name string) (*model.DatasetGroup, error)
	List(ctx context.Context) ([]*model.DatasetGroup, error)
	UpdateDatasetIDs(ctx context.Context, id string, datasetIDs []string) error
	Delete(ctx context.Context, id string) error
}

// 确保实现了接口
var (
	_ DatasetStore = (*DatasetRepository)(nil)
	_ GroupStore   = (*GroupRepository)(nil)
)
