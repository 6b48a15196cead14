package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ========== MemoryCache 测试 ==========

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got []item
	ok, err := c.Get(ctx, KeyDatasets, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []item{{ID: "1", Tags: []string{"a"}}}
	require.NoError(t, c.Set(ctx, KeyDatasets, want))

	ok, err = c.Get(ctx, KeyDatasets, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	// 修改返回值不影响缓存
	got[0].Tags[0] = "changed"
	var again []item
	_, _ = c.Get(ctx, KeyDatasets, &again)
	assert.Equal(t, "a", again[0].Tags[0])
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	for _, key := range AllKeys {
		require.NoError(t, c.Set(ctx, key, []string{key}))
	}

	require.NoError(t, c.Invalidate(ctx, DatasetKeys...))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 0, c.Len())
}

// ========== Load 测试 ==========

func TestLoadMemoizes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	calls := 0
	loader := func(context.Context) ([]string, error) {
		calls++
		return []string{"x", "y"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Load(ctx, c, KeyDatasetTags, loader)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, v)
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Invalidate(ctx, KeyDatasetTags))
	_, err := Load(ctx, c, KeyDatasetTags, loader)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := Load(ctx, c, KeyGroups, func(context.Context) ([]string, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadNilCache(t *testing.T) {
	v, err := Load(context.Background(), nil, KeyGroups, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

// ========== RedisCache 测试 ==========

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, "test:", time.Minute)

	require.NoError(t, c.Set(ctx, KeyDatasetNames, []item{{ID: "1"}}))
	assert.True(t, mr.Exists("test:"+KeyDatasetNames))
	assert.Equal(t, time.Minute, mr.TTL("test:"+KeyDatasetNames))

	var got []item
	ok, err := c.Get(ctx, KeyDatasetNames, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", got[0].ID)

	require.NoError(t, c.Invalidate(ctx))
	ok, err = c.Get(ctx, KeyDatasetNames, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, "", 0)
	mr.Close()

	var got []item
	_, err := c.Get(ctx, KeyDatasets, &got)
	assert.Error(t, err)
}

// ========== TieredCache 测试 ==========

func TestTieredCacheFillsLocal(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	remote := NewRedisCache(client, "", 0)
	local := NewMemoryCache()
	c := NewTieredCache(local, remote, nil)

	// 只存在于 Redis 的值被提升到本地
	require.NoError(t, remote.Set(ctx, KeyGroups, []string{"g1"}))
	var got []string
	ok, err := c.Get(ctx, KeyGroups, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"g1"}, got)
	assert.Equal(t, 1, local.Len())

	require.NoError(t, c.Invalidate(ctx, KeyGroups))
	assert.Equal(t, 0, local.Len())
	ok, err = remote.Get(ctx, KeyGroups, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTieredCacheRemoteDownIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewTieredCache(NewMemoryCache(), NewRedisCache(client, "", 0), nil)
	mr.Close()

	var got []string
	ok, err := c.Get(ctx, KeyDatasets, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, KeyDatasets, []string{"a"}))
	ok, err = c.Get(ctx, KeyDatasets, &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}
