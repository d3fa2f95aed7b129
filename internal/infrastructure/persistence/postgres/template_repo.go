// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"therapeutic-story-api/internal/domain/entity"
)

// TemplateRepository 生成模板仓储实现
type TemplateRepository struct {
	client *Client
}

// NewTemplateRepository 创建模板仓储
func NewTemplateRepository(client *Client) *TemplateRepository {
	return &TemplateRepository{client: client}
}

// GetByID 根据 ID 获取模板
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*entity.GenerationTemplate, error) {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.GetByID")
	defer span.End()

	// 非 uuid 的引用不可能命中，避免 postgres 因类型转换报错
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var tpl entity.GenerationTemplate
	if err := db.First(&tpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tpl, nil
}

// Upsert 按名称写入模板，供 bootstrap 初始化默认模板
func (r *TemplateRepository) Upsert(ctx context.Context, tpl *entity.GenerationTemplate) error {
	ctx, span := tracer.Start(ctx, "postgres.TemplateRepository.Upsert")
	defer span.End()

	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"system_prompt", "user_prompt_template", "target_chapters",
			"target_sections_per_chapter", "target_questions_per_chapter", "active", "updated_at",
		}),
	}).Create(tpl).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert template: %w", err)
	}
	return nil
}
