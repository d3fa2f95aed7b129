// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/domain/repository"
)

// generationMutableColumns 状态迁移时允许写入的列，输入字段创建后不可变
var generationMutableColumns = []string{
	"title", "content", "status", "provider", "failure_reason",
	"reviewer_id", "review_notes", "decided_at", "published_story_id",
	"duration_ms", "completed_at", "updated_at",
}

// GenerationRepository 生成记录仓储实现
type GenerationRepository struct {
	client *Client
}

// NewGenerationRepository 创建生成记录仓储
func NewGenerationRepository(client *Client) *GenerationRepository {
	return &GenerationRepository{client: client}
}

// Create 创建记录
func (r *GenerationRepository) Create(ctx context.Context, record *entity.GenerationRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create generation record: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取记录
func (r *GenerationRepository) GetByID(ctx context.Context, id string) (*entity.GenerationRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.GetByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	db := getDB(ctx, r.client.db)
	var record entity.GenerationRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get generation record: %w", err)
	}
	return &record, nil
}

// List 按条件查询记录，最新的在前
func (r *GenerationRepository) List(ctx context.Context, filter repository.GenerationFilter) ([]*entity.GenerationRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.GenerationRecord{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.RequesterID != "" {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}

	var records []*entity.GenerationRecord
	if err := query.Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list generation records: %w", err)
	}
	return records, nil
}

// UpdateIfStatus 以库中状态为前置条件的条件更新
func (r *GenerationRepository) UpdateIfStatus(ctx context.Context, record *entity.GenerationRecord, expected entity.GenerationStatus) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.GenerationRepository.UpdateIfStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.GenerationRecord{}).
		Where("id = ? AND status = ?", record.ID, expected).
		Select(generationMutableColumns).
		Updates(record)
	if result.Error != nil {
		span.RecordError(result.Error)
		return false, fmt.Errorf("failed to update generation record: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
