package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/cache"
	"github.com/ashwinyue/next-dataset/internal/jsonl"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/file"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

const (
	defaultPageSize    = 4
	defaultMaxPageSize = 100
)

// GroupCreator 批量导入后创建分组
type GroupCreator interface {
	CreateGroup(ctx context.Context, req *types.CreateGroupRequest) (*model.DatasetGroup, error)
}

// Options 数据集服务依赖
type Options struct {
	Store   repository.DatasetStore
	Storage file.Storage
	Cache   cache.Cache
	Lines   *jsonl.LineCache
	// Lock 进程级写锁，与分组服务共用
	Lock        *sync.RWMutex
	Logger      *zap.Logger
	PageSize    int
	MaxPageSize int
}

// Service 数据集服务
type Service struct {
	store       repository.DatasetStore
	storage     file.Storage
	cache       cache.Cache
	lines       *jsonl.LineCache
	lock        *sync.RWMutex
	logger      *zap.Logger
	groups      GroupCreator
	pageSize    int
	maxPageSize int
	now         func() time.Time
}

// NewService 创建数据集服务
func NewService(opts Options) *Service {
	s := &Service{
		store:       opts.Store,
		storage:     opts.Storage,
		cache:       opts.Cache,
		lines:       opts.Lines,
		lock:        opts.Lock,
		logger:      opts.Logger,
		pageSize:    opts.PageSize,
		maxPageSize: opts.MaxPageSize,
		now:         time.Now,
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache()
	}
	if s.lock == nil {
		s.lock = &sync.RWMutex{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.lines == nil {
		s.lines = jsonl.NewLineCache(s.storage, s.logger)
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = defaultMaxPageSize
	}
	return s
}

// SetGroupCreator 设置批量导入使用的分组服务
func (s *Service) SetGroupCreator(groups GroupCreator) {
	s.groups = groups
}

// ========== 查询 ==========

// ListDatasets 列出全部数据集（缓存）
func (s *Service) ListDatasets(ctx context.Context) ([]*model.Dataset, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	datasets, err := cache.Load(ctx, s.cache, cache.KeyDatasets, s.store.List)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// ListDatasetNames 列出全部数据集的 ID 和名称（缓存）
func (s *Service) ListDatasetNames(ctx context.Context) ([]model.DatasetName, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	names, err := cache.Load(ctx, s.cache, cache.KeyDatasetNames, s.store.ListNames)
	if err != nil {
		return nil, fmt.Errorf("failed to list dataset names: %w", err)
	}
	return names, nil
}

// ListTags 所有数据集用到的标签，去重并排序（缓存）
func (s *Service) ListTags(ctx context.Context) ([]string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	tags, err := cache.Load(ctx, s.cache, cache.KeyDatasetTags, func(ctx context.Context) ([]string, error) {
		datasets, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		tags := []string{}
		for _, d := range datasets {
			for _, tag := range d.Tags {
				if _, ok := seen[tag]; ok {
					continue
				}
				seen[tag] = struct{}{}
				tags = append(tags, tag)
			}
		}
		sort.Strings(tags)
		return tags, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// FilterByTags 返回包含任一标签的数据集，tags 为空时返回全部
func (s *Service) FilterByTags(ctx context.Context, tags []string) ([]*model.Dataset, error) {
	datasets, err := s.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}

	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return datasets, nil
	}

	filtered := make([]*model.Dataset, 0, len(datasets))
	for _, d := range datasets {
		if d.HasAnyTag(tags) {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// GetDataset 获取数据集
func (s *Service) GetDataset(ctx context.Context, id string) (*model.Dataset, error) {
	dataset, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err, id)
	}
	return dataset, nil
}

// ========== 修改 ==========

// UpdateDatasetRequest 更新数据集请求，字段为 nil 表示不修改
type UpdateDatasetRequest struct {
	RootPath *string  `json:"root_path" validate:"omitnil,notblank"`
	Tags     []string `json:"tags"`
}

// UpdateDataset 修改媒体根目录和/或整体替换标签
// 数据类型、计数和受管文件路径在导入后不可修改
func (s *Service) UpdateDataset(ctx context.Context, id string, req *UpdateDatasetRequest) (*model.Dataset, error) {
	if err := types.Validate(req); err != nil {
		return nil, err
	}

	update := repository.DatasetUpdate{}
	if req.RootPath != nil {
		root := strings.TrimSpace(*req.RootPath)
		update.RootPath = &root
	}
	if req.Tags != nil {
		update.Tags = normalizeTags(req.Tags)
		update.SetTags = true
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.store.Update(ctx, id, update); err != nil {
		return nil, wrapStoreError(err, id)
	}
	s.invalidate(ctx, cache.DatasetKeys...)

	return s.GetDataset(ctx, id)
}

// AddTag 添加标签，已存在时不做修改
func (s *Service) AddTag(ctx context.Context, id, tag string) (*model.Dataset, error) {
	tag = strings.TrimSpace(tag)
	if err := types.ValidateValue("tag", tag, "notblank"); err != nil {
		return nil, err
	}

	return s.mutateTags(ctx, id, func(d *model.Dataset) ([]string, bool) {
		if d.HasTag(tag) {
			return nil, false
		}
		return append(append([]string{}, d.Tags...), tag), true
	})
}

// RemoveTag 删除标签，不存在时不做修改
func (s *Service) RemoveTag(ctx context.Context, id, tag string) (*model.Dataset, error) {
	tag = strings.TrimSpace(tag)
	if err := types.ValidateValue("tag", tag, "notblank"); err != nil {
		return nil, err
	}

	return s.mutateTags(ctx, id, func(d *model.Dataset) ([]string, bool) {
		if !d.HasTag(tag) {
			return nil, false
		}
		tags := make([]string, 0, len(d.Tags))
		for _, t := range d.Tags {
			if t != tag {
				tags = append(tags, t)
			}
		}
		return tags, true
	})
}

// mutateTags 在写锁内读取、修改并保存标签
func (s *Service) mutateTags(ctx context.Context, id string, fn func(*model.Dataset) ([]string, bool)) (*model.Dataset, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	dataset, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err, id)
	}

	tags, changed := fn(dataset)
	if !changed {
		return dataset, nil
	}

	if err := s.store.Update(ctx, id, repository.DatasetUpdate{Tags: tags, SetTags: true}); err != nil {
		return nil, wrapStoreError(err, id)
	}
	s.invalidate(ctx, cache.DatasetKeys...)

	dataset.Tags = tags
	return dataset, nil
}

// ========== 缓存 ==========

// RefreshCache 清空结果缓存，lines 为 true 时同时清空 JSONL 行缓存
func (s *Service) RefreshCache(ctx context.Context, lines bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.invalidate(ctx)
	if lines {
		s.lines.ClearAll()
	}
	s.logger.Info("cache refreshed", zap.Bool("lines", lines))
}

// invalidate 调用方必须持有写锁
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// ========== 辅助函数 ==========

func wrapStoreError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFoundError("dataset", id)
	}
	return fmt.Errorf("dataset %s: %w", id, err)
}

// normalizeTags 去掉首尾空白、空标签和重复标签，保持原有顺序
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}
