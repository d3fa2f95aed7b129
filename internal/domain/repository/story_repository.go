// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"therapeutic-story-api/internal/domain/entity"
)

// StoryRepository 已发布故事仓储接口
type StoryRepository interface {
	// CreateStory 创建故事
	CreateStory(ctx context.Context, story *entity.Story) error

	// CreateChapter 创建章节
	CreateChapter(ctx context.Context, chapter *entity.StoryChapter) error

	// CreateSection 创建小节
	CreateSection(ctx context.Context, section *entity.StorySection) error

	// CreateQuestion 创建问题
	CreateQuestion(ctx context.Context, question *entity.StoryQuestion) error

	// GetStoryTree 获取故事及其有序的章节、小节、问题，不存在时返回 nil, nil
	GetStoryTree(ctx context.Context, id string) (*entity.Story, error)

	// GetBySourceGeneration 根据来源生成记录获取故事（不含子节点）
	GetBySourceGeneration(ctx context.Context, generationID string) (*entity.Story, error)
}
