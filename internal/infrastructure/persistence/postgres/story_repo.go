// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"therapeutic-story-api/internal/domain/entity"
)

// StoryRepository 已发布故事仓储实现
type StoryRepository struct {
	client *Client
}

// NewStoryRepository 创建故事仓储
func NewStoryRepository(client *Client) *StoryRepository {
	return &StoryRepository{client: client}
}

// CreateStory 创建故事
func (r *StoryRepository) CreateStory(ctx context.Context, story *entity.Story) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CreateStory")
	defer span.End()

	if story.ID == "" {
		story.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(story).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// CreateChapter 创建章节
func (r *StoryRepository) CreateChapter(ctx context.Context, chapter *entity.StoryChapter) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CreateChapter")
	defer span.End()

	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(chapter).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chapter: %w", err)
	}
	return nil
}

// CreateSection 创建小节
func (r *StoryRepository) CreateSection(ctx context.Context, section *entity.StorySection) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CreateSection")
	defer span.End()

	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(section).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create section: %w", err)
	}
	return nil
}

// CreateQuestion 创建问题
func (r *StoryRepository) CreateQuestion(ctx context.Context, question *entity.StoryQuestion) error {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.CreateQuestion")
	defer span.End()

	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	db := getDB(ctx, r.client.db)
	if err := db.Create(question).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetStoryTree 获取完整故事树
func (r *StoryRepository) GetStoryTree(ctx context.Context, id string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.GetStoryTree")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	db := getDB(ctx, r.client.db)
	var story entity.Story
	if err := db.First(&story, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	var chapters []*entity.StoryChapter
	if err := db.Where("story_id = ?", story.ID).Order("seq_num ASC").Find(&chapters).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	story.Chapters = chapters
	if len(chapters) == 0 {
		return &story, nil
	}

	chapterIDs := make([]string, 0, len(chapters))
	byChapter := make(map[string]*entity.StoryChapter, len(chapters))
	for _, ch := range chapters {
		chapterIDs = append(chapterIDs, ch.ID)
		byChapter[ch.ID] = ch
	}

	var sections []*entity.StorySection
	if err := db.Where("chapter_id IN ?", chapterIDs).Order("seq_num ASC").Find(&sections).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}

	sectionIDs := make([]string, 0, len(sections))
	bySection := make(map[string]*entity.StorySection, len(sections))
	for _, s := range sections {
		byChapter[s.ChapterID].Sections = append(byChapter[s.ChapterID].Sections, s)
		if s.Kind == entity.SectionKindQuestion {
			sectionIDs = append(sectionIDs, s.ID)
			bySection[s.ID] = s
		}
	}
	if len(sectionIDs) == 0 {
		return &story, nil
	}

	var questions []*entity.StoryQuestion
	if err := db.Where("section_id IN ?", sectionIDs).Find(&questions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	for _, q := range questions {
		bySection[q.SectionID].Question = q
	}
	return &story, nil
}

// GetBySourceGeneration 根据来源生成记录获取故事
func (r *StoryRepository) GetBySourceGeneration(ctx context.Context, generationID string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "postgres.StoryRepository.GetBySourceGeneration")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var story entity.Story
	if err := db.First(&story, "source_generation_id = ?", generationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get story by generation: %w", err)
	}
	return &story, nil
}
