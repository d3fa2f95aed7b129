package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "therapeutic-story-api/pkg/errors"
)

func sampleContent() *StoryContent {
	return &StoryContent{
		Title: "Milo and the Thunder Cloud",
		Chapters: []ContentChapter{{
			Number: 1,
			Sections: []ContentSection{
				NewTextSection(1, "Milo heard thunder."),
				NewQuestionSection(2, "", ContentQuestion{Prompt: "How did Milo feel?", Kind: QuestionKindReflection, TherapeuticPurpose: "naming feelings"}),
			},
		}},
	}
}

func newRecord() *GenerationRecord {
	return NewGenerationRecord(GenerationRequest{
		RequesterID:      "user-1",
		AgeGroup:         AgeGroup8To10,
		Category:         CategoryAnxietyManagement,
		TherapeuticGoals: []TherapeuticGoal{GoalReduceAnxiety},
		CustomPrompt:     "  a rainy day  ",
	}, GenerationModeSingle)
}

func TestNewGenerationRecord(t *testing.T) {
	r := newRecord()

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, GenerationStatusGenerating, r.Status)
	assert.Equal(t, "a rainy day", r.CustomPrompt)
	assert.Nil(t, r.TemplateID)
	assert.False(t, r.HasContent())
	assert.NotNil(t, r.StartedAt)
}

func TestGenerationRecord_CompleteThenApprove(t *testing.T) {
	r := newRecord()
	require.NoError(t, r.Complete(sampleContent(), "fallback"))

	assert.Equal(t, GenerationStatusCompleted, r.Status)
	assert.Equal(t, "Milo and the Thunder Cloud", r.Title)
	assert.True(t, r.HasContent())
	assert.Nil(t, r.ReviewerID)
	assert.Nil(t, r.PublishedStoryID)

	require.NoError(t, r.Approve("reviewer-1", "", "story-1"))
	assert.Equal(t, GenerationStatusApproved, r.Status)
	require.NotNil(t, r.PublishedStoryID)
	assert.Equal(t, "story-1", *r.PublishedStoryID)
	assert.NotNil(t, r.DecidedAt)
	assert.True(t, r.IsTerminal())
}

func TestGenerationRecord_FailClearsContent(t *testing.T) {
	r := newRecord()
	require.NoError(t, r.Fail("validation failed", "fallback"))

	assert.Equal(t, GenerationStatusFailed, r.Status)
	assert.False(t, r.HasContent())
	assert.Equal(t, "validation failed", r.FailureReason)
	assert.True(t, r.IsTerminal())
}

func TestGenerationRecord_InvalidTransitionsDoNotMutate(t *testing.T) {
	r := newRecord()
	require.NoError(t, r.Fail("boom", "fallback"))
	before := *r

	err := r.Approve("reviewer-1", "ok", "story-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, before, *r)

	assert.Error(t, r.Reject("reviewer-1", "no"))
	assert.Error(t, r.Complete(sampleContent(), "fallback"))
	assert.Equal(t, before, *r)
}

func TestGenerationRecord_RejectOnlyFromCompleted(t *testing.T) {
	r := newRecord()
	assert.Error(t, r.Reject("reviewer-1", "too early"))

	require.NoError(t, r.Complete(sampleContent(), "fallback"))
	require.NoError(t, r.Reject("reviewer-1", "needs rework"))
	assert.Equal(t, GenerationStatusRejected, r.Status)
	assert.Equal(t, "needs rework", *r.ReviewNotes)
	assert.Nil(t, r.PublishedStoryID)

	assert.Error(t, r.Approve("reviewer-1", "", "story-1"))
}

func TestGenerationRecord_CompleteRequiresTitledContent(t *testing.T) {
	r := newRecord()
	err := r.Complete(&StoryContent{}, "fallback")

	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, GenerationStatusGenerating, r.Status)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(GenerationStatusPending, GenerationStatusGenerating))
	assert.True(t, CanTransition(GenerationStatusGenerating, GenerationStatusCompleted))
	assert.True(t, CanTransition(GenerationStatusCompleted, GenerationStatusRejected))
	assert.False(t, CanTransition(GenerationStatusGenerating, GenerationStatusApproved))
	assert.False(t, CanTransition(GenerationStatusApproved, GenerationStatusApproved))
	assert.False(t, CanTransition(GenerationStatusFailed, GenerationStatusGenerating))
}
