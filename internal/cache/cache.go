// Package cache 提供目录查询结果缓存
//
// 缓存只保存整体列表（全部数据集、名称、标签、全部分组），
// 任何写操作在提交后整体失效对应 key，不做局部更新。
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashwinyue/next-dataset/internal/metrics"
)

// 缓存 key
const (
	KeyDatasets     = "datasets:all"
	KeyDatasetNames = "datasets:names"
	KeyDatasetTags  = "datasets:tags"
	KeyGroups       = "groups:all"
)

// DatasetKeys 数据集变更需要失效的 key
var DatasetKeys = []string{KeyDatasets, KeyDatasetNames, KeyDatasetTags}

// AllKeys 全部 key
var AllKeys = []string{KeyDatasets, KeyDatasetNames, KeyDatasetTags, KeyGroups}

// Cache 结果缓存
type Cache interface {
	// Get 读取 key 并解码到 dest，未命中返回 false
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set 写入 key
	Set(ctx context.Context, key string, value any) error
	// Invalidate 删除 key，不传 key 时清空全部
	Invalidate(ctx context.Context, keys ...string) error
}

// Load 先查缓存，未命中时调用 loader 并回填
// 缓存读写失败不影响结果，只是退化为直接查库
func Load[T any](ctx context.Context, c Cache, key string, loader func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		if ok, err := c.Get(ctx, key, &v); err == nil && ok {
			metrics.RecordCacheLookup(key, true)
			return v, nil
		}
		metrics.RecordCacheLookup(key, false)
	}

	v, err := loader(ctx)
	if err != nil {
		return v, err
	}

	if c != nil {
		_ = c.Set(ctx, key, v)
	}
	return v, nil
}

func encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cache value: %w", err)
	}
	return nil
}
