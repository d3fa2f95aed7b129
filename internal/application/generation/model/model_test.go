package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/domain/entity"
)

// MockClient mockery 风格的 Client mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Name() string {
	return m.Called().String(0)
}

func (m *MockClient) GenerateOnce(ctx context.Context, p prompt.Prompts) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockClient) GenerateStream(ctx context.Context, p prompt.Prompts) (FragmentReader, error) {
	args := m.Called(ctx, p)
	if r := args.Get(0); r != nil {
		return r.(FragmentReader), args.Error(1)
	}
	return nil, args.Error(1)
}

type erroringReader struct {
	chunks []string
	err    error
	closed bool
}

func (r *erroringReader) Recv() (string, error) {
	if len(r.chunks) == 0 {
		return "", r.err
	}
	c := r.chunks[0]
	r.chunks = r.chunks[1:]
	return c, nil
}

func (r *erroringReader) Close() { r.closed = true }

func prompts(age entity.AgeGroup, cat entity.StoryCategory, shape prompt.Shape) prompt.Prompts {
	b := prompt.NewBuilder(shape)
	p, err := b.Build(context.Background(), entity.GenerationRequest{
		RequesterID:      "user-1",
		AgeGroup:         age,
		Category:         cat,
		TherapeuticGoals: []entity.TherapeuticGoal{entity.GoalReduceAnxiety, entity.GoalPromoteMindfulness},
	}, nil)
	if err != nil {
		panic(err)
	}
	return p
}

func TestFallback_StreamConcatenationEqualsOnce(t *testing.T) {
	ctx := context.Background()
	shapes := []prompt.Shape{
		{Chapters: 3, SectionsPerChapter: 3, QuestionsPerChapter: 1},
		{Chapters: 1, SectionsPerChapter: 1, QuestionsPerChapter: 0},
		{Chapters: 5, SectionsPerChapter: 2, QuestionsPerChapter: 2},
	}
	for _, size := range []int{1, 7, 48, 100000} {
		f := NewFallback(size)
		for _, age := range entity.AllAgeGroups() {
			for _, cat := range entity.AllCategories() {
				for _, shape := range shapes {
					p := prompts(age, cat, shape)
					once, err := f.GenerateOnce(ctx, p)
					require.NoError(t, err)

					r, err := f.GenerateStream(ctx, p)
					require.NoError(t, err)
					streamed, err := ReadAll(r)
					require.NoError(t, err)

					assert.Equal(t, once, streamed, "age=%s category=%s size=%d", age, cat, size)
				}
			}
		}
	}
}

func TestFallback_IsDeterministicAndShaped(t *testing.T) {
	ctx := context.Background()
	f := NewFallback(0)
	p := prompts(entity.AgeGroup8To10, entity.CategoryAnxietyManagement, prompt.Shape{Chapters: 3, SectionsPerChapter: 3, QuestionsPerChapter: 1})

	a, _ := f.GenerateOnce(ctx, p)
	b, _ := f.GenerateOnce(ctx, p)
	assert.Equal(t, a, b)

	var story fallbackStory
	require.NoError(t, json.Unmarshal([]byte(a), &story))
	assert.NotEmpty(t, story.Title)
	require.Len(t, story.Chapters, 3)
	for _, ch := range story.Chapters {
		require.Len(t, ch.Sections, 3)
		assert.Equal(t, "Text", ch.Sections[0].Type)
		assert.Equal(t, "Question", ch.Sections[2].Type)
		require.NotNil(t, ch.Sections[2].Question)
	}
}

func TestSelector_UnconfiguredUsesFallback(t *testing.T) {
	s := NewSelector(nil, NewFallback(0), time.Second)
	p := prompts(entity.AgeGroup6To7, entity.CategoryBullying, prompt.Shape{Chapters: 2, SectionsPerChapter: 2, QuestionsPerChapter: 1})

	out := s.Select().GenerateOnce(context.Background(), p)
	assert.Equal(t, FallbackName, out.Provider)
	assert.NotEmpty(t, out.Text)
}

func TestGuarded_LiveSuccess(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateOnce", mock.Anything, mock.Anything).Return(`{"title":"x"}`, nil).Once()

	out := NewSelector(live, NewFallback(0), time.Second).Select().GenerateOnce(context.Background(), prompt.Prompts{})

	assert.Equal(t, Output{Text: `{"title":"x"}`, Provider: "openai"}, out)
	live.AssertExpectations(t)
}

func TestGuarded_LiveErrorFallsBackExactlyOnce(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateOnce", mock.Anything, mock.Anything).Return("", errors.New("503")).Once()

	p := prompts(entity.AgeGroup8To10, entity.CategoryMindfulness, prompt.Shape{Chapters: 1, SectionsPerChapter: 2, QuestionsPerChapter: 1})
	out := NewSelector(live, NewFallback(0), time.Second).Select().GenerateOnce(context.Background(), p)

	expected, _ := NewFallback(0).GenerateOnce(context.Background(), p)
	assert.Equal(t, FallbackName, out.Provider)
	assert.Equal(t, expected, out.Text)
	live.AssertNumberOfCalls(t, "GenerateOnce", 1)
}

func TestGuarded_LiveTimeoutFallsBack(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateOnce", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded).Once()

	out := NewSelector(live, NewFallback(0), 20*time.Millisecond).Select().GenerateOnce(context.Background(), prompt.Prompts{})
	assert.Equal(t, FallbackName, out.Provider)
}

func TestGuarded_StreamOpenErrorFallsBack(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateStream", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()

	reader, provider := NewSelector(live, NewFallback(0), time.Second).Select().GenerateStream(context.Background(), prompt.Prompts{})
	assert.Equal(t, FallbackName, provider)
	text, err := ReadAll(reader)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestGuarded_StreamFirstRecvErrorFallsBack(t *testing.T) {
	live := new(MockClient)
	broken := &erroringReader{err: errors.New("reset")}
	live.On("Name").Return("openai")
	live.On("GenerateStream", mock.Anything, mock.Anything).Return(broken, nil).Once()

	_, provider := NewSelector(live, NewFallback(0), time.Second).Select().GenerateStream(context.Background(), prompt.Prompts{})
	assert.Equal(t, FallbackName, provider)
	assert.True(t, broken.closed)
}

func TestGuarded_StreamEmptyFallsBack(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateStream", mock.Anything, mock.Anything).Return(NewSliceReader(nil), nil).Once()

	_, provider := NewSelector(live, NewFallback(0), time.Second).Select().GenerateStream(context.Background(), prompt.Prompts{})
	assert.Equal(t, FallbackName, provider)
}

func TestGuarded_StreamMidErrorSurfaces(t *testing.T) {
	live := new(MockClient)
	live.On("Name").Return("openai")
	live.On("GenerateStream", mock.Anything, mock.Anything).
		Return(&erroringReader{chunks: []string{"{\"title\"", ":"}, err: errors.New("connection reset")}, nil).Once()

	reader, provider := NewSelector(live, NewFallback(0), time.Second).Select().GenerateStream(context.Background(), prompt.Prompts{})
	assert.Equal(t, "openai", provider)

	first, err := reader.Recv()
	require.NoError(t, err)
	assert.Equal(t, "{\"title\"", first)
	text, err := ReadAll(reader)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Equal(t, ":", text)
}
