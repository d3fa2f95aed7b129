//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"therapeutic-story-api/internal/application/generation"
	"therapeutic-story-api/internal/application/publication"
	"therapeutic-story-api/internal/config"
	"therapeutic-story-api/internal/domain/repository"
	"therapeutic-story-api/internal/infrastructure/llm"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres"
	"therapeutic-story-api/internal/infrastructure/persistence/redis"
	"therapeutic-story-api/internal/interfaces/http/handler"
	"therapeutic-story-api/internal/interfaces/http/middleware"
	"therapeutic-story-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		GenerationSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 初始化迁移与种子数据所需依赖
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		PostgresSet,
		ProvideRedisClient,
		redis.NewCache,
		ProvideCachedTemplateRepository,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewGenerationRepository,
	postgres.NewStoryRepository,
	postgres.NewTemplateRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.GenerationRepository), new(*postgres.GenerationRepository)),
	wire.Bind(new(repository.StoryRepository), new(*postgres.StoryRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideCachedTemplateRepository,
	wire.Bind(new(repository.TemplateRepository), new(*redis.CachedTemplateRepository)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 生命周期事件提供者集合
var MessagingSet = wire.NewSet(
	ProvideEventPublisher,
)

// GenerationSet 生成编排提供者集合
var GenerationSet = wire.NewSet(
	llm.NewEinoFactory,
	ProvideSelector,
	ProvidePromptBuilder,
	publication.NewMaterializer,
	wire.Bind(new(generation.Materializer), new(*publication.Materializer)),
	ProvideOrchestrator,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewGenerationHandler,
	handler.NewStreamHandler,
	handler.NewStoryHandler,
	wire.Bind(new(handler.GenerationService), new(*generation.Orchestrator)),
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
