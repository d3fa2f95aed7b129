// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"fmt"

	"therapeutic-story-api/internal/domain/entity"
)

// Models 返回需要迁移的全部模型
func Models() []any {
	return []any{
		&entity.GenerationTemplate{},
		&entity.GenerationRecord{},
		&entity.Story{},
		&entity.StoryChapter{},
		&entity.StorySection{},
		&entity.StoryQuestion{},
	}
}

// AutoMigrate 自动迁移表结构
func (c *Client) AutoMigrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.AutoMigrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}
