package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genmodel "therapeutic-story-api/internal/application/generation/model"
	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/config"
	"therapeutic-story-api/internal/domain/entity"
)

type fakeChatModel struct {
	reply  string
	chunks []string
	err    error
	input  []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	sr, sw := schema.Pipe[*schema.Message](len(f.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range f.chunks {
			sw.Send(schema.AssistantMessage(c, nil), nil)
		}
		// 仅携带用量的尾包
		sw.Send(&schema.Message{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
		}}, nil)
	}()
	return sr, nil
}

var testPrompts = func() prompt.Prompts {
	p, err := prompt.NewBuilder(prompt.Shape{Chapters: 1, SectionsPerChapter: 1}).Build(
		context.Background(),
		entity.GenerationRequest{
			RequesterID:      "user-1",
			AgeGroup:         entity.AgeGroup8To10,
			Category:         entity.CategorySocialSkills,
			TherapeuticGoals: []entity.TherapeuticGoal{entity.GoalBuildConfidence},
		},
		&entity.GenerationTemplate{SystemPrompt: "be kind", UserPromptTemplate: "write a story about {category_label}"},
	)
	if err != nil {
		panic(err)
	}
	return p
}()

func TestChatClient_GenerateOnceSendsSystemAndUser(t *testing.T) {
	fake := &fakeChatModel{reply: `{"title":"x"}`}
	c := NewChatClient("openai", "gpt-4o-mini", fake)

	text, err := c.GenerateOnce(context.Background(), testPrompts)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, text)
	require.Len(t, fake.input, 2)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.True(t, strings.HasPrefix(fake.input[0].Content, "be kind\n\n"))
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, testPrompts.User, fake.input[1].Content)
	assert.Equal(t, "openai", c.Name())
}

func TestChatClient_EmptyReplyIsAnError(t *testing.T) {
	c := NewChatClient("openai", "m", &fakeChatModel{reply: "  "})
	_, err := c.GenerateOnce(context.Background(), testPrompts)
	assert.Error(t, err)
}

func TestChatClient_ProviderErrorIsWrapped(t *testing.T) {
	cause := errors.New("429 too many requests")
	c := NewChatClient("deepseek", "m", &fakeChatModel{err: cause})

	_, err := c.GenerateOnce(context.Background(), testPrompts)
	assert.ErrorIs(t, err, cause)
	_, err = c.GenerateStream(context.Background(), testPrompts)
	assert.ErrorIs(t, err, cause)
}

func TestChatClient_StreamSkipsUsageOnlyChunks(t *testing.T) {
	c := NewChatClient("openai", "m", &fakeChatModel{chunks: []string{"{\"ti", "tle\":1}"}})

	r, err := c.GenerateStream(context.Background(), testPrompts)
	require.NoError(t, err)
	text, err := genmodel.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{\"title\":1}", text)
}

func TestNewLiveClient_UnconfiguredReturnsNil(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openai",
		Providers:       map[string]config.ProviderConfig{"openai": {Model: "gpt-4o-mini"}},
	}}

	client, err := NewLiveClient(context.Background(), NewEinoFactory(cfg))
	require.NoError(t, err)
	assert.Nil(t, client)
}
