package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest 启动miniredis实例
func setupRedisTest(t *testing.T) *miniredis.Miniredis {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	cache, err := NewMemoryCache(Config{
		Type:            "memory",
		KeyPrefix:       "test",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)

	require.NoError(t, cache.Set("key1", "value1", 0))

	val, found, err := cache.Get("key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	val, found, err = cache.Get("non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 过期
	require.NoError(t, cache.Set("expire-soon", "temp", time.Millisecond*200))
	time.Sleep(time.Millisecond * 400)
	_, found, _ = cache.Get("expire-soon")
	assert.False(t, found)

	// 删除
	require.NoError(t, cache.Set("to-delete", "x", 0))
	require.NoError(t, cache.Delete("to-delete"))
	_, found, _ = cache.Get("to-delete")
	assert.False(t, found)

	// 清空
	require.NoError(t, cache.Set("key2", "value2", 0))
	require.NoError(t, cache.Clear())
	_, found, _ = cache.Get("key2")
	assert.False(t, found)
}

// TestRedisCache 使用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	mr := setupRedisTest(t)

	cache, err := NewRedisCache(Config{
		Type:       "redis",
		KeyPrefix:  "test",
		RedisAddr:  mr.Addr(),
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer cache.(*RedisCache).Close()

	require.NoError(t, cache.Set("redis-key1", "redis-value1", 0))
	assert.True(t, mr.Exists("test:redis-key1"))
	assert.Equal(t, time.Minute, mr.TTL("test:redis-key1"))

	val, found, err := cache.Get("redis-key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "redis-value1", val)

	val, found, err = cache.Get("redis-non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 过期
	require.NoError(t, cache.Set("redis-expire-soon", "tmp", time.Second))
	mr.FastForward(2 * time.Second)
	_, found, err = cache.Get("redis-expire-soon")
	assert.NoError(t, err)
	assert.False(t, found)

	// 删除
	require.NoError(t, cache.Set("redis-to-delete", "x", 0))
	require.NoError(t, cache.Delete("redis-to-delete"))
	_, found, _ = cache.Get("redis-to-delete")
	assert.False(t, found)

	// Clear只影响当前前缀
	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, cache.Set("a", "1", 0))
	require.NoError(t, cache.Set("b", "2", 0))
	require.NoError(t, cache.Clear())
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:key"))
}

// TestRedisCacheUnavailable 测试Redis不可用
func TestRedisCacheUnavailable(t *testing.T) {
	mr := setupRedisTest(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(Config{Type: "redis", RedisAddr: addr})
	assert.Error(t, err)
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(DefaultConfig())
	assert.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, memCache)

	mr := setupRedisTest(t)
	redisCache, err := NewCache(Config{Type: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)

	// 未知类型回退到内存缓存
	unknownCache, err := NewCache(Config{Type: "unknown-type"})
	assert.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, unknownCache)
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "prefix", GenerateCacheKey("prefix"))
	assert.Equal(t, "prefix:part1", GenerateCacheKey("prefix", "part1"))
	assert.Equal(t, "prefix:part1:part2:part3", GenerateCacheKey("prefix", "part1", "part2", "part3"))
}

// TestHashKey 测试摘要键
func TestHashKey(t *testing.T) {
	a := HashKey("x", "y")
	assert.Equal(t, a, HashKey("x", "y"))
	assert.NotEqual(t, a, HashKey("y", "x"))
	assert.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
	assert.Len(t, a, 64)

	// 非法UTF-8字节按原样参与摘要
	assert.NotEqual(t, HashKey("x\xff"), HashKey("x\xfe"))
	assert.NotEqual(t, HashKey("x\xff"), HashKey("x\uFFFD"))
}
