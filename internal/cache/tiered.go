package cache

import (
	"context"

	"go.uber.org/zap"
)

// TieredCache 两级缓存：进程内优先，其次 Redis
// Redis 出错时记录日志并按未命中处理
type TieredCache struct {
	local  *MemoryCache
	remote Cache
	logger *zap.Logger
}

// NewTieredCache 创建两级缓存
func NewTieredCache(local *MemoryCache, remote Cache, logger *zap.Logger) *TieredCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredCache{local: local, remote: remote, logger: logger}
}

func (c *TieredCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if ok, err := c.local.Get(ctx, key, dest); err == nil && ok {
		return true, nil
	}

	ok, err := c.remote.Get(ctx, key, dest)
	if err != nil {
		c.logger.Warn("remote cache get failed", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	if ok {
		_ = c.local.Set(ctx, key, dest)
	}
	return ok, nil
}

func (c *TieredCache) Set(ctx context.Context, key string, value any) error {
	if err := c.local.Set(ctx, key, value); err != nil {
		return err
	}
	if err := c.remote.Set(ctx, key, value); err != nil {
		c.logger.Warn("remote cache set failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (c *TieredCache) Invalidate(ctx context.Context, keys ...string) error {
	_ = c.local.Invalidate(ctx, keys...)
	if err := c.remote.Invalidate(ctx, keys...); err != nil {
		c.logger.Warn("remote cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return nil
}
