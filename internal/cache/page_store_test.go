package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisPageStore_GetSetExpire(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisPageStore(rdb)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "index_page:anon:")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "index_page:anon:", []byte("<html>1</html>"), IndexPageTTL))
	body, ok, err := s.Get(ctx, "index_page:anon:")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<html>1</html>", string(body))

	mr.FastForward(IndexPageTTL + time.Second)
	_, ok, err = s.Get(ctx, "index_page:anon:")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPageStore_ClearByPrefix(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisPageStore(rdb)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, s.Set(ctx, PageKey(IndexPagePrefix, 0, fmt.Sprint(i)), []byte("x"), time.Minute))
	}
	require.NoError(t, rdb.Set(ctx, "blacklist:abc", "1", time.Minute).Err())

	require.NoError(t, s.Clear(ctx, IndexPagePrefix))
	assert.Equal(t, []string{"blacklist:abc"}, mr.Keys())
}

func TestRedisPageStore_ErrorWhenRedisDown(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	s := NewRedisPageStore(rdb)
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestLocalPageStore(t *testing.T) {
	s, err := NewLocalPageStore(1 << 20)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("page"), time.Minute))
	body, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "page", string(body))

	require.NoError(t, s.Clear(ctx, IndexPagePrefix))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPageStore_PicksBackend(t *testing.T) {
	_, rdb := newMiniRedis(t)

	withRedis, err := NewPageStore(rdb)
	require.NoError(t, err)
	assert.IsType(t, &RedisPageStore{}, withRedis)

	withoutRedis, err := NewPageStore(nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalPageStore{}, withoutRedis)
}

func TestPageKey(t *testing.T) {
	assert.Equal(t, "index_page:anon:", PageKey(IndexPagePrefix, 0, ""))
	assert.Equal(t, "index_page:u7:2", PageKey(IndexPagePrefix, 7, "2"))
}

func TestInitRedis(t *testing.T) {
	mr, _ := newMiniRedis(t)

	rdb := InitRedis(mr.Addr())
	require.NotNil(t, rdb)
	_ = rdb.Close()

	rdb = InitRedis("redis://" + mr.Addr() + "/0")
	require.NotNil(t, rdb)
	_ = rdb.Close()

	assert.Nil(t, InitRedis(""))
	assert.Nil(t, InitRedis("redis://localhost:6379/notanumber"))
}
