package publication_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapeutic-story-api/internal/application/publication"
	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres/postgrestest"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
)

// failingStories 在写入指定序号章节时失败
type failingStories struct {
	*postgres.StoryRepository
	failAtChapter int
}

func (f *failingStories) CreateChapter(ctx context.Context, chapter *entity.StoryChapter) error {
	if chapter.SeqNum == f.failAtChapter {
		return errors.New("disk full")
	}
	return f.StoryRepository.CreateChapter(ctx, chapter)
}

func completedRecord(t *testing.T) *entity.GenerationRecord {
	t.Helper()
	record := entity.NewGenerationRecord(entity.GenerationRequest{
		RequesterID:      "member-1",
		AgeGroup:         entity.AgeGroup8To10,
		Category:         entity.CategorySocialSkills,
		TherapeuticGoals: []entity.TherapeuticGoal{entity.GoalEnhanceSocialSkills},
	}, entity.GenerationModeSingle)

	q := entity.ContentQuestion{Prompt: "Who could you ask to play?", Kind: entity.QuestionKindDiscussion, TherapeuticPurpose: "initiating play"}
	content := &entity.StoryContent{
		Title:  "Pip and the Friendship Bridge",
		Author: "Story Companion",
		Chapters: []entity.ContentChapter{
			{Number: 1, Title: "New Playground", Sections: []entity.ContentSection{
				entity.NewTextSection(1, "Pip looked at the swings."),
				entity.NewQuestionSection(3, "Let's think.", q),
			}},
			{Number: 4, Title: "Saying Hello", Sections: []entity.ContentSection{
				entity.NewTextSection(2, "Pip said hello."),
			}},
		},
	}
	require.NoError(t, record.Complete(content, "fallback"))
	return record
}

func TestMaterialize_WritesRenumberedTree(t *testing.T) {
	ctx := context.Background()
	client := postgrestest.NewClient(t)
	stories := postgres.NewStoryRepository(client)
	m := publication.NewMaterializer(postgres.NewTxManager(client), stories)

	record := completedRecord(t)
	storyID, err := m.Materialize(ctx, record)
	require.NoError(t, err)

	tree, err := stories.GetStoryTree(ctx, storyID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, record.ID, tree.SourceGenerationID)
	assert.Equal(t, "Pip and the Friendship Bridge", tree.Title)
	assert.Equal(t, entity.CategorySocialSkills, tree.Category)

	require.Len(t, tree.Chapters, 2)
	assert.Equal(t, 1, tree.Chapters[0].SeqNum)
	assert.Equal(t, 2, tree.Chapters[1].SeqNum)
	assert.Equal(t, "Saying Hello", tree.Chapters[1].Title)

	sections := tree.Chapters[0].Sections
	require.Len(t, sections, 2)
	assert.Equal(t, []int{1, 2}, []int{sections[0].SeqNum, sections[1].SeqNum})
	assert.Nil(t, sections[0].Question)
	require.NotNil(t, sections[1].Question)
	assert.Equal(t, entity.QuestionKindDiscussion, sections[1].Question.Kind)
}

func TestMaterialize_FailureLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	client := postgrestest.NewClient(t)
	stories := postgres.NewStoryRepository(client)
	m := publication.NewMaterializer(postgres.NewTxManager(client),
		&failingStories{StoryRepository: stories, failAtChapter: 2})

	record := completedRecord(t)
	storyID, err := m.Materialize(ctx, record)
	require.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Empty(t, storyID)

	orphan, err := stories.GetBySourceGeneration(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan)

	var chapters, sections, questions int64
	require.NoError(t, client.DB().Model(&entity.StoryChapter{}).Count(&chapters).Error)
	require.NoError(t, client.DB().Model(&entity.StorySection{}).Count(&sections).Error)
	require.NoError(t, client.DB().Model(&entity.StoryQuestion{}).Count(&questions).Error)
	assert.Zero(t, chapters)
	// 第一章的小节与问题先于失败写入，也必须回滚
	assert.Zero(t, sections)
	assert.Zero(t, questions)
}

func TestMaterialize_RequiresCompletedRecord(t *testing.T) {
	client := postgrestest.NewClient(t)
	m := publication.NewMaterializer(postgres.NewTxManager(client), postgres.NewStoryRepository(client))

	record := entity.NewGenerationRecord(entity.GenerationRequest{RequesterID: "u"}, entity.GenerationModeSingle)
	_, err := m.Materialize(context.Background(), record)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestMaterialize_DoesNotAnnouncePublishAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info", "json")
	t.Cleanup(func() { logger.Init("info", "json") })

	client := postgrestest.NewClient(t)
	m := publication.NewMaterializer(postgres.NewTxManager(client), postgres.NewStoryRepository(client))

	// 外层事务仍可能回滚，发布结果由调用方在提交后记录
	_, err := m.Materialize(context.Background(), completedRecord(t))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}
