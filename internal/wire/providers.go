// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"therapeutic-story-api/internal/application/generation"
	"therapeutic-story-api/internal/application/generation/model"
	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/config"
	"therapeutic-story-api/internal/domain/repository"
	"therapeutic-story-api/internal/infrastructure/llm"
	"therapeutic-story-api/internal/infrastructure/messaging"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres"
	"therapeutic-story-api/internal/infrastructure/persistence/redis"
	"therapeutic-story-api/internal/interfaces/http/handler"
	"therapeutic-story-api/internal/interfaces/http/router"
	"therapeutic-story-api/pkg/logger"
)

// App API 服务依赖
type App struct {
	Router       *router.Router
	Orchestrator *generation.Orchestrator
}

// Bootstrap 迁移与种子数据依赖
type Bootstrap struct {
	PgClient      *postgres.Client
	Templates     *postgres.TemplateRepository
	TemplateCache *redis.CachedTemplateRepository
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideCachedTemplateRepository 提供带读穿缓存的模板仓储
func ProvideCachedTemplateRepository(repo *postgres.TemplateRepository, cache *redis.Cache, cfg *config.Config) *redis.CachedTemplateRepository {
	return redis.NewCachedTemplateRepository(repo, cache, cfg.Generation.TemplateCacheTTL)
}

// ProvideEventPublisher 提供生命周期事件发布者，未启用时返回 nil
func ProvideEventPublisher(ctx context.Context, redisClient *redis.Client, cfg *config.Config) generation.EventPublisher {
	if !cfg.Messaging.RedisStream.Enabled {
		logger.Info(ctx, "generation event stream disabled")
		return nil
	}
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideSelector 提供模型选择器
// 外部模型创建失败不阻塞启动，全部请求走本地生成器
func ProvideSelector(ctx context.Context, cfg *config.Config, factory *llm.EinoFactory) *model.Selector {
	fallback := model.NewFallback(cfg.Generation.StreamFragmentRunes)

	live, err := llm.NewLiveClient(ctx, factory)
	if err != nil {
		logger.Warn(ctx, "llm provider not available, using fallback generator", "error", err.Error())
		live = nil
	}
	if live == nil {
		return model.NewSelector(nil, fallback, 0)
	}

	_, providerCfg, _ := cfg.LLM.DefaultProviderConfig()
	logger.Info(ctx, "llm provider configured", "provider", live.Name(), "model", providerCfg.Model)
	return model.NewSelector(live, fallback, providerCfg.Timeout)
}

// ProvidePromptBuilder 提供提示词构建器
func ProvidePromptBuilder(cfg *config.Config) *prompt.Builder {
	return prompt.NewBuilder(prompt.Shape{
		Chapters:            cfg.Generation.DefaultChapters,
		SectionsPerChapter:  cfg.Generation.DefaultSectionsPerChapter,
		QuestionsPerChapter: cfg.Generation.DefaultQuestionsPerChapter,
	})
}

// ProvideOrchestrator 提供生成编排器
func ProvideOrchestrator(
	cfg *config.Config,
	builder *prompt.Builder,
	selector *model.Selector,
	records repository.GenerationRepository,
	templates repository.TemplateRepository,
	tx repository.Transactor,
	materializer generation.Materializer,
	events generation.EventPublisher,
) *generation.Orchestrator {
	return generation.NewOrchestrator(builder, selector, records, templates, tx, materializer, events, generation.Options{
		MaxCustomPromptRunes: cfg.Generation.MaxCustomPromptRunes,
	})
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, redisClient *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, redisClient)
}
