// Package redis 提供 Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/domain/repository"
	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
)

// errTemplateMissing 不缓存未命中的模板
var errTemplateMissing = errors.New("template missing")

// CachedTemplateRepository 模板读穿缓存
// 缓存不可用时降级为直接读库
type CachedTemplateRepository struct {
	next  repository.TemplateRepository
	cache *Cache
	ttl   time.Duration
}

// NewCachedTemplateRepository 创建模板缓存仓储
func NewCachedTemplateRepository(next repository.TemplateRepository, cache *Cache, ttl time.Duration) *CachedTemplateRepository {
	return &CachedTemplateRepository{next: next, cache: cache, ttl: ttl}
}

// TemplateCacheKey 模板缓存键
func TemplateCacheKey(id string) string {
	return "template:" + id
}

// GetByID 根据 ID 获取模板
func (r *CachedTemplateRepository) GetByID(ctx context.Context, id string) (*entity.GenerationTemplate, error) {
	if r.cache == nil || r.ttl <= 0 {
		return r.next.GetByID(ctx, id)
	}

	raw, hit, err := r.cache.GetOrLoadSafe(ctx, TemplateCacheKey(id), r.ttl, func() (interface{}, error) {
		tpl, err := r.next.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tpl == nil {
			return nil, errTemplateMissing
		}
		return tpl, nil
	})
	switch {
	case errors.Is(err, errTemplateMissing):
		metrics.TemplateCacheTotal.WithLabelValues("miss").Inc()
		return nil, nil
	case err != nil:
		metrics.TemplateCacheTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "template cache unavailable, reading through", "template_id", id, "error", err.Error())
		return r.next.GetByID(ctx, id)
	}

	if hit {
		metrics.TemplateCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.TemplateCacheTotal.WithLabelValues("miss").Inc()
	}

	var tpl entity.GenerationTemplate
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return nil, fmt.Errorf("failed to decode cached template: %w", err)
	}
	return &tpl, nil
}

// Invalidate 使模板缓存失效
func (r *CachedTemplateRepository) Invalidate(ctx context.Context, ids ...string) error {
	if r.cache == nil || len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, TemplateCacheKey(id))
	}
	return r.cache.Delete(ctx, keys...)
}
