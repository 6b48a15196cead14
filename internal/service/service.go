package service

import (
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-dataset/internal/cache"
	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/jsonl"
	"github.com/ashwinyue/next-dataset/internal/repository"
	"github.com/ashwinyue/next-dataset/internal/service/dataset"
	"github.com/ashwinyue/next-dataset/internal/service/file"
	"github.com/ashwinyue/next-dataset/internal/service/group"
)

// Services 服务集合
type Services struct {
	Dataset *dataset.Service
	Group   *group.Service

	Config *config.Config
	Cache  cache.Cache
	Lines  *jsonl.LineCache
}

// NewServices 创建所有服务
// 数据集服务和分组服务共用同一把写锁和同一个结果缓存
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	storage, err := file.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	resultCache, err := newCache(cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}

	lock := &sync.RWMutex{}
	lines := jsonl.NewLineCache(storage, logger.Named("jsonl"))

	datasetSvc := dataset.NewService(dataset.Options{
		Store:       repo.Dataset,
		Storage:     storage,
		Cache:       resultCache,
		Lines:       lines,
		Lock:        lock,
		Logger:      logger.Named("dataset"),
		PageSize:    cfg.Preview.PageSize,
		MaxPageSize: cfg.Preview.MaxPageSize,
	})
	groupSvc := group.NewService(group.Options{
		Groups:   repo.Group,
		Datasets: repo.Dataset,
		Cache:    resultCache,
		Lock:     lock,
		Logger:   logger.Named("group"),
	})
	datasetSvc.SetGroupCreator(groupSvc)

	logger.Info("services initialized",
		zap.String("cache", cfg.Cache.Backend),
		zap.String("upload_dir", storage.BasePath()))

	return &Services{
		Dataset: datasetSvc,
		Group:   groupSvc,
		Config:  cfg,
		Cache:   resultCache,
		Lines:   lines,
	}, nil
}

// newCache 按配置创建结果缓存
func newCache(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "redis", "tiered":
		if redisClient == nil {
			return nil, fmt.Errorf("cache backend %q requires a redis client", cfg.Cache.Backend)
		}
		remote := cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix, cfg.Cache.GetTTL())
		if cfg.Cache.Backend == "redis" {
			return remote, nil
		}
		return cache.NewTieredCache(cache.NewMemoryCache(), remote, logger.Named("cache")), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %q", cfg.Cache.Backend)
	}
}
