package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapeutic-story-api/internal/domain/entity"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

type countingTemplateRepo struct {
	calls atomic.Int32
	tpl   *entity.GenerationTemplate
	err   error
}

func (r *countingTemplateRepo) GetByID(_ context.Context, _ string) (*entity.GenerationTemplate, error) {
	r.calls.Add(1)
	return r.tpl, r.err
}

func TestCachedTemplateRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	next := &countingTemplateRepo{tpl: &entity.GenerationTemplate{ID: "tpl-1", Name: "calm", TargetChapters: 2, Active: true}}
	repo := NewCachedTemplateRepository(next, NewCache(client), time.Minute)

	first, err := repo.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "tpl-1")
	require.NoError(t, err)

	assert.Equal(t, "calm", first.Name)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())

	require.NoError(t, repo.Invalidate(ctx, "tpl-1"))
	_, err = repo.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedTemplateRepository_MissingIsNotCached(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	next := &countingTemplateRepo{}
	repo := NewCachedTemplateRepository(next, NewCache(client), time.Minute)

	tpl, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, tpl)
	assert.False(t, mr.Exists(TemplateCacheKey("nope")))
}

func TestCachedTemplateRepository_CacheDownReadsThrough(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)
	next := &countingTemplateRepo{tpl: &entity.GenerationTemplate{ID: "tpl-1", Name: "calm"}}
	repo := NewCachedTemplateRepository(next, NewCache(client), time.Minute)
	mr.Close()

	tpl, err := repo.GetByID(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "calm", tpl.Name)
}

func TestCachedTemplateRepository_LoaderErrorSurfaces(t *testing.T) {
	client, _ := newTestClient(t)
	next := &countingTemplateRepo{err: errors.New("db down")}
	repo := NewCachedTemplateRepository(next, NewCache(client), time.Minute)

	_, err := repo.GetByID(context.Background(), "tpl-1")
	assert.Error(t, err)
}

func TestCache_GetOrLoadSafeCoalesces(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	cache := NewCache(client)

	var loads atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.GetOrLoadSafe(ctx, "k", time.Minute, func() (interface{}, error) {
				loads.Add(1)
				<-release
				return "v", nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	// 并发请求可能在第一次加载完成前后到达，至少被合并为少数几次
	assert.LessOrEqual(t, loads.Load(), int32(2))
	val, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, string(val))
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client)
	key := BuildUserRateLimitKey("user-1", "generation.start")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestClient_HealthCheck(t *testing.T) {
	client, mr := newTestClient(t)
	assert.NoError(t, client.HealthCheck(context.Background()))
	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
