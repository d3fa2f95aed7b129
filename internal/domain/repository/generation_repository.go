// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"therapeutic-story-api/internal/domain/entity"
)

// GenerationFilter 生成记录过滤条件
type GenerationFilter struct {
	Status entity.GenerationStatus
	// RequesterID 为空表示不按提交人过滤
	RequesterID string
}

// GenerationRepository 生成记录仓储接口
type GenerationRepository interface {
	// Create 创建记录
	Create(ctx context.Context, record *entity.GenerationRecord) error

	// GetByID 根据 ID 获取记录，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.GenerationRecord, error)

	// List 按条件查询，按创建时间倒序
	List(ctx context.Context, filter GenerationFilter) ([]*entity.GenerationRecord, error)

	// UpdateIfStatus 仅当库中状态仍为 expected 时写入 record，返回是否写入成功
	UpdateIfStatus(ctx context.Context, record *entity.GenerationRecord, expected entity.GenerationStatus) (bool, error)
}
