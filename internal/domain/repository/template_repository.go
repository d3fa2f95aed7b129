// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"therapeutic-story-api/internal/domain/entity"
)

// TemplateRepository 生成模板仓储接口（只读）
type TemplateRepository interface {
	// GetByID 根据 ID 获取模板，不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.GenerationTemplate, error)
}
