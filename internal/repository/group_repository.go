package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/model"
)

// GroupRepository 分组仓库
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository 创建分组仓库
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create 创建分组
func (r *GroupRepository) Create(ctx context.Context, group *model.DatasetGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// GetByID 根据ID获取分组
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*model.DatasetGroup, error) {
	var group model.DatasetGroup
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByName 根据名称获取分组
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*model.DatasetGroup, error) {
	var group model.DatasetGroup
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// List 列出全部分组
func (r *GroupRepository) List(ctx context.Context) ([]*model.DatasetGroup, error) {
	var groups []*model.DatasetGroup
	err := r.db.WithContext(ctx).Order("create_time DESC, name ASC").Find(&groups).Error
	return groups, err
}

// UpdateDatasetIDs 替换分组的数据集列表
func (r *GroupRepository) UpdateDatasetIDs(ctx context.Context, id string, datasetIDs []string) error {
	result := r.db.WithContext(ctx).
		Model(&model.DatasetGroup{}).
		Where("id = ?", id).
		Update("dataset_ids", datatypes.JSONSlice[string](datasetIDs))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除分组
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.DatasetGroup{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
