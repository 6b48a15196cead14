// Package group 提供数据集分组的管理、统计和导出
package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-dataset/internal/cache"
	"github.com/ashwinyue/next-dataset/internal/model"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

// Options 分组服务依赖
type Options struct {
	Groups   repository.GroupStore
	Datasets repository.DatasetStore
	Cache    cache.Cache
	Lock     *sync.RWMutex
	Logger   *zap.Logger
}

// Service 分组服务
type Service struct {
	groups   repository.GroupStore
	datasets repository.DatasetStore
	cache    cache.Cache
	lock     *sync.RWMutex
	logger   *zap.Logger
	now      func() time.Time
}

// NewService 创建分组服务
func NewService(opts Options) *Service {
	s := &Service{
		groups:   opts.Groups,
		datasets: opts.Datasets,
		cache:    opts.Cache,
		lock:     opts.Lock,
		logger:   opts.Logger,
		now:      time.Now,
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
	return s
}

// ========== 分组管理 ==========

// CreateGroup 创建分组，数据集 ID 去重后保存
func (s *Service) CreateGroup(ctx context.Context, req *types.CreateGroupRequest) (*model.DatasetGroup, error) {
	name := strings.TrimSpace(req.Name)
	if err := types.Validate(&types.CreateGroupRequest{Name: name}); err != nil {
		return nil, err
	}
	ids := dedupeIDs(req.DatasetIDs)
	if len(ids) == 0 {
		return nil, &types.EmptyGroupError{}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.groups.GetByName(ctx, name); err == nil {
		return nil, &types.DuplicateNameError{Name: name}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up group %s: %w", name, err)
	}

	group := &model.DatasetGroup{
		ID:         uuid.New().String(),
		Name:       name,
		DatasetIDs: ids,
		CreateTime: s.now(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group %s: %w", name, err)
	}
	s.invalidate(ctx)

	s.logger.Info("group created", zap.String("group", name), zap.Int("datasets", len(ids)))
	return group, nil
}

// GetGroup 获取分组
func (s *Service) GetGroup(ctx context.Context, id string) (*model.DatasetGroup, error) {
	group, err := s.groups.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreError(err, id)
	}
	return group, nil
}

// ListGroups 列出全部分组（缓存）
func (s *Service) ListGroups(ctx context.Context) ([]*model.DatasetGroup, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	groups, err := cache.Load(ctx, s.cache, cache.KeyGroups, s.groups.List)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// UpdateGroupDatasets 替换分组包含的数据集
func (s *Service) UpdateGroupDatasets(ctx context.Context, id string, datasetIDs []string) (*model.DatasetGroup, error) {
	ids := dedupeIDs(datasetIDs)
	if len(ids) == 0 {
		return nil, &types.EmptyGroupError{}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.groups.UpdateDatasetIDs(ctx, id, ids); err != nil {
		return nil, wrapStoreError(err, id)
	}
	s.invalidate(ctx)

	return s.GetGroup(ctx, id)
}

// DeleteGroup 删除分组，数据集本身不受影响
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.groups.Delete(ctx, id); err != nil {
		return wrapStoreError(err, id)
	}
	s.invalidate(ctx)

	s.logger.Info("group deleted", zap.String("id", id))
	return nil
}

// ========== 统计与导出 ==========

// Stats 分组统计
func (s *Service) Stats(ctx context.Context, id string) (*model.GroupStats, error) {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.StatsForDatasets(ctx, group.DatasetIDs)
}

// StatsForDatasets 汇总一组数据集的计数，找不到的 ID 直接跳过
func (s *Service) StatsForDatasets(ctx context.Context, ids []string) (*model.GroupStats, error) {
	datasets, err := s.datasets.GetByIDs(ctx, dedupeIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}
	return Rollup(datasets), nil
}

// Rollup 汇总计数
func Rollup(datasets []*model.Dataset) *model.GroupStats {
	stats := &model.GroupStats{Datasets: make(map[string]int, len(datasets))}
	for _, d := range datasets {
		stats.Total += d.ItemCount
		stats.Text += d.TextCount
		stats.SingleImage += d.SingleImageCount
		stats.MultiImage += d.MultiImageCount
		stats.Video += d.VideoCount
		stats.Datasets[d.Name] = d.ItemCount
	}
	return stats
}

// ExportGroup 导出分组清单：数据集名称到 {root, annotation, length}
func (s *Service) ExportGroup(ctx context.Context, id string) (map[string]model.ExportEntry, error) {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	datasets, err := s.datasets.GetByIDs(ctx, group.DatasetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load datasets: %w", err)
	}

	export := make(map[string]model.ExportEntry, len(datasets))
	for _, d := range datasets {
		export[d.Name] = model.ExportEntry{
			Root:       d.RootPath,
			Annotation: d.ManagedContentPath,
			Length:     d.ItemCount,
		}
	}
	return export, nil
}

// ========== 辅助函数 ==========

// invalidate 调用方必须持有写锁
func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.KeyGroups); err != nil {
		s.logger.Warn("failed to invalidate cache", zap.String("key", cache.KeyGroups), zap.Error(err))
	}
}

func wrapStoreError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFoundError("group", id)
	}
	return fmt.Errorf("group %s: %w", id, err)
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
