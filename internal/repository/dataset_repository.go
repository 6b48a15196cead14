package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/model"
)

// DatasetRepository 数据集仓库
type DatasetRepository struct {
	db *gorm.DB
}

// NewDatasetRepository 创建数据集仓库
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Create 创建数据集
func (r *DatasetRepository) Create(ctx context.Context, dataset *model.Dataset) error {
	return r.db.WithContext(ctx).Create(dataset).Error
}

// GetByID 根据ID获取数据集
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*model.Dataset, error) {
	var dataset model.Dataset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetByName 根据名称获取数据集
func (r *DatasetRepository) GetByName(ctx context.Context, name string) (*model.Dataset, error) {
	var dataset model.Dataset
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetByIDs 批量获取，结果按 ids 的顺序排列
func (r *DatasetRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Dataset, error) {
	if len(ids) == 0 {
		return []*model.Dataset{}, nil
	}

	var found []*model.Dataset
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Dataset, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}
	datasets := make([]*model.Dataset, 0, len(found))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			datasets = append(datasets, d)
			delete(byID, id)
		}
	}
	return datasets, nil
}

// List 列出全部数据集，最新上传的在前
func (r *DatasetRepository) List(ctx context.Context) ([]*model.Dataset, error) {
	var datasets []*model.Dataset
	err := r.db.WithContext(ctx).Order("upload_time DESC, name ASC").Find(&datasets).Error
	return datasets, err
}

// ListNames 列出全部数据集的 ID 和名称
func (r *DatasetRepository) ListNames(ctx context.Context) ([]model.DatasetName, error) {
	var names []model.DatasetName
	err := r.db.WithContext(ctx).
		Model(&model.Dataset{}).
		Select("id", "name").
		Order("name ASC").
		Scan(&names).Error
	return names, err
}

// Update 更新根目录和标签
func (r *DatasetRepository) Update(ctx context.Context, id string, fields DatasetUpdate) error {
	updates := map[string]interface{}{}
	if fields.RootPath != nil {
		updates["root_path"] = *fields.RootPath
	}
	if fields.SetTags {
		tags := fields.Tags
		if tags == nil {
			tags = []string{}
		}
		updates["tags"] = datatypes.JSONSlice[string](tags)
	}

	tx := r.db.WithContext(ctx).Model(&model.Dataset{}).Where("id = ?", id)
	if len(updates) == 0 {
		var count int64
		if err := tx.Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}

	result := tx.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
