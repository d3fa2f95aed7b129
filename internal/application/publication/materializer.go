// Package publication 将审核通过的生成内容物化为已发布故事
package publication

import (
	"context"
	"fmt"
	"time"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/domain/repository"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
	"therapeutic-story-api/pkg/tracer"
)

// Materializer 发布物化器
type Materializer struct {
	tx      repository.Transactor
	stories repository.StoryRepository
}

// NewMaterializer 创建发布物化器
func NewMaterializer(tx repository.Transactor, stories repository.StoryRepository) *Materializer {
	return &Materializer{tx: tx, stories: stories}
}

// Materialize 在单个事务内写入故事、章节、小节与问题，返回故事 ID
// 章节与小节按内容中的顺序重新编号为 1..n；任一步失败整体回滚
func (m *Materializer) Materialize(ctx context.Context, record *entity.GenerationRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "publication.Materialize")
	defer span.End()

	if record == nil {
		return "", apperrors.ErrInvalidState.WithDetail("generation record is nil")
	}
	if record.Status != entity.GenerationStatusCompleted || !record.HasContent() {
		return "", apperrors.ErrInvalidState.WithDetail(
			fmt.Sprintf("generation %s is %s and cannot be published", record.ID, record.Status))
	}

	start := time.Now()
	var storyID string
	err := m.tx.WithTransaction(ctx, func(ctx context.Context) error {
		id, err := m.write(ctx, record)
		if err != nil {
			return err
		}
		storyID = id
		return nil
	})
	metrics.PublicationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		logger.Error(ctx, "failed to materialize story", err,
			"generation_id", record.ID,
		)
		return "", apperrors.ErrPersistence.WithError(err)
	}

	logger.Debug(ctx, "story rows written",
		"generation_id", record.ID,
		"story_id", storyID,
		"chapters", record.Content.ChapterCount(),
		"questions", record.Content.QuestionCount(),
	)
	return storyID, nil
}

func (m *Materializer) write(ctx context.Context, record *entity.GenerationRecord) (string, error) {
	content := record.Content
	story := &entity.Story{
		Title:              content.Title,
		Author:             content.Author,
		Excerpt:            content.Excerpt,
		Description:        content.Description,
		Category:           record.Category,
		AgeGroup:           record.AgeGroup,
		TherapeuticGoals:   record.TherapeuticGoals,
		SourceGenerationID: record.ID,
		CreatedBy:          record.RequesterID,
		PublishedAt:        time.Now(),
	}
	if err := m.stories.CreateStory(ctx, story); err != nil {
		return "", err
	}

	for i, ch := range content.Chapters {
		chapter := &entity.StoryChapter{
			StoryID: story.ID,
			SeqNum:  i + 1,
			Title:   ch.Title,
		}
		if err := m.stories.CreateChapter(ctx, chapter); err != nil {
			return "", fmt.Errorf("chapter %d: %w", i+1, err)
		}

		for j, sec := range ch.Sections {
			section := &entity.StorySection{
				ChapterID: chapter.ID,
				SeqNum:    j + 1,
				Kind:      sec.Kind,
				Body:      sec.Body,
			}
			if err := m.stories.CreateSection(ctx, section); err != nil {
				return "", fmt.Errorf("chapter %d section %d: %w", i+1, j+1, err)
			}
			if !sec.IsQuestion() {
				continue
			}
			question := &entity.StoryQuestion{
				SectionID:          section.ID,
				Prompt:             sec.Question.Prompt,
				Kind:               sec.Question.Kind,
				TherapeuticPurpose: sec.Question.TherapeuticPurpose,
			}
			if err := m.stories.CreateQuestion(ctx, question); err != nil {
				return "", fmt.Errorf("chapter %d section %d question: %w", i+1, j+1, err)
			}
		}
	}
	return story.ID, nil
}
