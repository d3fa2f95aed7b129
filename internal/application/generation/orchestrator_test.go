package generation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"therapeutic-story-api/internal/application/generation"
	"therapeutic-story-api/internal/application/generation/model"
	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/application/generation/relay"
	"therapeutic-story-api/internal/application/publication"
	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres"
	"therapeutic-story-api/internal/infrastructure/persistence/postgres/postgrestest"
	apperrors "therapeutic-story-api/pkg/errors"
)

// MockEventPublisher mockery 风格的事件发布 mock
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishGenerationEvent(ctx context.Context, eventType string, record *entity.GenerationRecord) error {
	return m.Called(ctx, eventType, record).Error(0)
}

// stubClient 固定输出的外部模型
type stubClient struct {
	text string
}

func (s stubClient) Name() string { return "stub" }

func (s stubClient) GenerateOnce(context.Context, prompt.Prompts) (string, error) {
	return s.text, nil
}

func (s stubClient) GenerateStream(context.Context, prompt.Prompts) (model.FragmentReader, error) {
	return model.NewSliceReader([]string{s.text}), nil
}

type brokenMaterializer struct{}

func (brokenMaterializer) Materialize(context.Context, *entity.GenerationRecord) (string, error) {
	return "", apperrors.ErrPersistence.WithError(errors.New("connection refused"))
}

// disconnectingSink 第一个 data 事件之后断开
type disconnectingSink struct {
	mu     sync.Mutex
	events []relay.Event
	closed chan struct{}
}

func newDisconnectingSink() *disconnectingSink {
	return &disconnectingSink{closed: make(chan struct{})}
}

func (s *disconnectingSink) Send(e relay.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.events {
		if prev.Type == relay.EventData {
			return errors.New("broken pipe")
		}
	}
	s.events = append(s.events, e)
	return nil
}

func (s *disconnectingSink) Close() { close(s.closed) }

type fixture struct {
	orch      *generation.Orchestrator
	records   *postgres.GenerationRepository
	stories   *postgres.StoryRepository
	templates *postgres.TemplateRepository
	events    *MockEventPublisher
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	live         model.Client
	materializer generation.Materializer
}

func withLive(c model.Client) fixtureOption {
	return func(cfg *fixtureConfig) { cfg.live = c }
}

func withMaterializer(m generation.Materializer) fixtureOption {
	return func(cfg *fixtureConfig) { cfg.materializer = m }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	client := postgrestest.NewClient(t)
	tx := postgres.NewTxManager(client)
	stories := postgres.NewStoryRepository(client)
	templates := postgres.NewTemplateRepository(client)

	cfg := &fixtureConfig{materializer: publication.NewMaterializer(tx, stories)}
	for _, opt := range opts {
		opt(cfg)
	}

	events := new(MockEventPublisher)
	events.On("PublishGenerationEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	records := postgres.NewGenerationRepository(client)
	orch := generation.NewOrchestrator(
		prompt.NewBuilder(prompt.Shape{Chapters: 3, SectionsPerChapter: 3, QuestionsPerChapter: 1}),
		model.NewSelector(cfg.live, model.NewFallback(16), time.Second),
		records,
		templates,
		tx,
		cfg.materializer,
		events,
		generation.Options{MaxCustomPromptRunes: 2000},
	)
	return &fixture{orch: orch, records: records, stories: stories, templates: templates, events: events}
}

func anxietyRequest() entity.GenerationRequest {
	return entity.GenerationRequest{
		RequesterID:      "member-1",
		AgeGroup:         entity.AgeGroup8To10,
		Category:         entity.CategoryAnxietyManagement,
		TherapeuticGoals: []entity.TherapeuticGoal{entity.GoalReduceAnxiety},
	}
}

func (f *fixture) completed(t *testing.T) *entity.GenerationRecord {
	t.Helper()
	id, err := f.orch.Start(context.Background(), anxietyRequest(), nil)
	require.NoError(t, err)
	record, err := f.orch.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, entity.GenerationStatusCompleted, record.Status)
	return record
}

func TestScenarioA_SingleShotWithoutProviderCompletes(t *testing.T) {
	f := newFixture(t)

	record := f.completed(t)
	assert.NotEmpty(t, record.Title)
	require.NotNil(t, record.Content)
	assert.GreaterOrEqual(t, record.Content.ChapterCount(), 1)
	assert.Equal(t, model.FallbackName, record.Provider)
	assert.Equal(t, entity.GenerationModeSingle, record.Mode)
	assert.NotNil(t, record.CompletedAt)
	f.events.AssertCalled(t, "PublishGenerationEvent", mock.Anything, generation.EventCompleted, mock.Anything)
}

func TestScenarioB_ApproveMaterializesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	record := f.completed(t)

	storyID, err := f.orch.Approve(ctx, record.ID, "therapist-1", "")
	require.NoError(t, err)
	require.NotEmpty(t, storyID)

	approved, err := f.orch.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusApproved, approved.Status)
	require.NotNil(t, approved.PublishedStoryID)
	assert.Equal(t, storyID, *approved.PublishedStoryID)
	assert.Equal(t, "therapist-1", *approved.ReviewerID)

	tree, err := f.stories.GetStoryTree(ctx, storyID)
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, record.Title, tree.Title)
	assert.Len(t, tree.Chapters, record.Content.ChapterCount())

	_, err = f.orch.Approve(ctx, record.ID, "therapist-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestScenarioC_RejectThenApproveFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	record := f.completed(t)

	require.NoError(t, f.orch.Reject(ctx, record.ID, "therapist-1", "needs rework"))

	rejected, err := f.orch.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewNotes)
	assert.Equal(t, "needs rework", *rejected.ReviewNotes)

	_, err = f.orch.Approve(ctx, record.ID, "therapist-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	f.events.AssertCalled(t, "PublishGenerationEvent", mock.Anything, generation.EventRejected, mock.Anything)
}

func TestScenarioD_StreamSurvivesSinkDisconnect(t *testing.T) {
	f := newFixture(t)
	sink := newDisconnectingSink()

	// 调用方上下文在返回后立即取消，生成仍需完成
	ctx, cancel := context.WithCancel(context.Background())
	id, err := f.orch.Start(ctx, anxietyRequest(), sink)
	cancel()
	require.NoError(t, err)
	require.NotEmpty(t, id)

	f.orch.Wait()
	select {
	case <-sink.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never closed")
	}

	record, err := f.orch.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusCompleted, record.Status)
	assert.Equal(t, entity.GenerationModeStream, record.Mode)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	assert.Equal(t, relay.EventStart, sink.events[0].Type)
	assert.Equal(t, id, sink.events[0].RecordID)
	assert.Equal(t, relay.EventData, sink.events[1].Type)
}

func TestStart_InvalidProviderOutputFailsWithoutContent(t *testing.T) {
	f := newFixture(t, withLive(stubClient{text: `{"title":"Half a story","author":"","excerpt":"","description":""}`}))

	id, err := f.orch.Start(context.Background(), anxietyRequest(), nil)
	require.NoError(t, err)

	record, err := f.orch.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusFailed, record.Status)
	assert.Nil(t, record.Content)
	assert.Empty(t, record.Title)
	assert.Equal(t, "stub", record.Provider)
	assert.Contains(t, record.FailureReason, "chapters")
	f.events.AssertCalled(t, "PublishGenerationEvent", mock.Anything, generation.EventFailed, mock.Anything)
}

func TestStart_RejectsMalformedRequests(t *testing.T) {
	f := newFixture(t)
	inactive := &entity.GenerationTemplate{Name: "retired", Active: false}
	require.NoError(t, f.templates.Upsert(context.Background(), inactive))
	broken := &entity.GenerationTemplate{Name: "broken", UserPromptTemplate: "A story about {pet_name}.", Active: true}
	require.NoError(t, f.templates.Upsert(context.Background(), broken))

	cases := []struct {
		name   string
		mutate func(*entity.GenerationRequest)
		field  string
	}{
		{"missing requester", func(r *entity.GenerationRequest) { r.RequesterID = " " }, "requester_id"},
		{"unknown age group", func(r *entity.GenerationRequest) { r.AgeGroup = "99" }, "age_group"},
		{"unknown category", func(r *entity.GenerationRequest) { r.Category = "SPACE" }, "category"},
		{"no goals", func(r *entity.GenerationRequest) { r.TherapeuticGoals = nil }, "therapeutic_goals"},
		{"unknown goal", func(r *entity.GenerationRequest) {
			r.TherapeuticGoals = append(r.TherapeuticGoals, "FLY")
		}, "therapeutic_goals[1]"},
		{"duplicate goal", func(r *entity.GenerationRequest) {
			r.TherapeuticGoals = append(r.TherapeuticGoals, entity.GoalReduceAnxiety)
		}, "therapeutic_goals[1]"},
		{"long custom prompt", func(r *entity.GenerationRequest) { r.CustomPrompt = strings.Repeat("é", 2001) }, "custom_prompt"},
		{"missing template", func(r *entity.GenerationRequest) { r.TemplateID = "7d1c3c8e-58a4-4b0e-9a55-3c3f0c1f0b11" }, "template_id"},
		{"inactive template", func(r *entity.GenerationRequest) { r.TemplateID = inactive.ID }, "template_id"},
		{"template with unknown placeholder", func(r *entity.GenerationRequest) { r.TemplateID = broken.ID }, "template_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := anxietyRequest()
			tc.mutate(&req)
			id, err := f.orch.Start(context.Background(), req, nil)
			assert.Empty(t, id)
			require.ErrorIs(t, err, apperrors.ErrValidation)
			assert.True(t, strings.HasPrefix(apperrors.AsAppError(err).Detail, tc.field+": "))
		})
	}
}

func TestStart_UsesActiveTemplateShape(t *testing.T) {
	f := newFixture(t)
	tpl := &entity.GenerationTemplate{Name: "short", TargetChapters: 1, TargetSectionsPerChapter: 2, Active: true}
	require.NoError(t, f.templates.Upsert(context.Background(), tpl))

	req := anxietyRequest()
	req.TemplateID = tpl.ID
	id, err := f.orch.Start(context.Background(), req, nil)
	require.NoError(t, err)

	record, err := f.orch.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, entity.GenerationStatusCompleted, record.Status)
	assert.Equal(t, 1, record.Content.ChapterCount())
	require.NotNil(t, record.TemplateID)
	assert.Equal(t, tpl.ID, *record.TemplateID)
}

func TestApprove_RequiresCompletedAndNeverMutates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withLive(stubClient{text: "not json"}))

	id, err := f.orch.Start(ctx, anxietyRequest(), nil)
	require.NoError(t, err)
	before, err := f.orch.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entity.GenerationStatusFailed, before.Status)

	_, err = f.orch.Approve(ctx, id, "therapist-1", "looks good")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	after, err := f.orch.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Nil(t, after.ReviewerID)
	assert.Nil(t, after.PublishedStoryID)

	_, err = f.orch.Approve(ctx, "b0f0b4b5-4b53-44c4-8d43-2f0c7f1d9d11", "therapist-1", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApprove_GeneratingRecordIsInvalidState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	record := entity.NewGenerationRecord(anxietyRequest(), entity.GenerationModeStream)
	require.NoError(t, f.records.Create(ctx, record))

	_, err := f.orch.Approve(ctx, record.ID, "therapist-1", "looks good")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	err = f.orch.Reject(ctx, record.ID, "therapist-1", "not yet")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	after, err := f.orch.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusGenerating, after.Status)
	assert.Nil(t, after.ReviewerID)
	assert.Nil(t, after.PublishedStoryID)
	assert.Nil(t, after.Content)

	orphan, err := f.stories.GetBySourceGeneration(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan)
	f.events.AssertNotCalled(t, "PublishGenerationEvent", mock.Anything, generation.EventApproved, mock.Anything)
}

func TestApprove_MaterializationFailureKeepsRecordRetryable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withMaterializer(brokenMaterializer{}))
	record := f.completed(t)

	_, err := f.orch.Approve(ctx, record.ID, "therapist-1", "")
	require.ErrorIs(t, err, apperrors.ErrPersistence)

	after, err := f.orch.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusCompleted, after.Status)
	assert.Nil(t, after.PublishedStoryID)
}

func TestReject_RequiresNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	record := f.completed(t)

	err := f.orch.Reject(ctx, record.ID, "therapist-1", "   ")
	require.ErrorIs(t, err, apperrors.ErrValidation)

	after, err := f.orch.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.GenerationStatusCompleted, after.Status)
}

func TestListReviewable_FiltersByRequester(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.completed(t)
	other := anxietyRequest()
	other.RequesterID = "member-2"
	secondID, err := f.orch.Start(ctx, other, nil)
	require.NoError(t, err)
	decided := f.completed(t)
	require.NoError(t, f.orch.Reject(ctx, decided.ID, "therapist-1", "too long"))

	all, err := f.orch.ListReviewable(ctx, "")
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{first.ID, secondID}, ids)

	mine, err := f.orch.ListReviewable(ctx, "member-2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, secondID, mine[0].ID)
}

func TestStart_PublishFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(t)
	f.events.ExpectedCalls = nil
	f.events.On("PublishGenerationEvent", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	record := f.completed(t)
	assert.Equal(t, entity.GenerationStatusCompleted, record.Status)
}
