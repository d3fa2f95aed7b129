package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	genmodel "therapeutic-story-api/internal/application/generation/model"
	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/infrastructure/eino/callback"
)

// ChatClient 将 Eino ChatModel 适配为生成用的模型客户端
type ChatClient struct {
	provider string
	model    string
	chat     einomodel.BaseChatModel
}

// NewChatClient 包装已创建的 ChatModel
func NewChatClient(provider, modelName string, chat einomodel.BaseChatModel) *ChatClient {
	return &ChatClient{provider: provider, model: modelName, chat: chat}
}

// NewLiveClient 返回默认外部模型客户端
// 未配置默认提供商时返回 nil，由选择器直接使用本地生成器
func NewLiveClient(ctx context.Context, factory *EinoFactory) (genmodel.Client, error) {
	name, cfg, ok := factory.config.DefaultProviderConfig()
	if !ok {
		return nil, nil
	}
	chat, err := factory.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return NewChatClient(name, cfg.Model, chat), nil
}

// Name 实现 Client
func (c *ChatClient) Name() string { return c.provider }

// GenerateOnce 实现 Client
func (c *ChatClient) GenerateOnce(ctx context.Context, p prompt.Prompts) (string, error) {
	ctx = c.instrument(ctx, "generate")
	msg, err := c.chat.Generate(ctx, messages(p))
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.provider, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errors.New("empty llm response")
	}
	return msg.Content, nil
}

// GenerateStream 实现 Client
func (c *ChatClient) GenerateStream(ctx context.Context, p prompt.Prompts) (genmodel.FragmentReader, error) {
	ctx = c.instrument(ctx, "stream")
	sr, err := c.chat.Stream(ctx, messages(p))
	if err != nil {
		return nil, fmt.Errorf("%s stream: %w", c.provider, err)
	}
	return &streamReader{sr: sr}, nil
}

func (c *ChatClient) instrument(ctx context.Context, operation string) context.Context {
	ctx = callback.WithCallInfo(ctx, callback.CallInfo{
		Operation: operation,
		Provider:  c.provider,
		Model:     c.model,
	})
	return einocallbacks.InitCallbacks(ctx, &einocallbacks.RunInfo{
		Name:      c.provider,
		Type:      "OpenAI",
		Component: components.ComponentOfChatModel,
	})
}

// messages 模型请求消息，直接使用模板格式化结果
func messages(p prompt.Prompts) []*schema.Message {
	return p.Messages
}

// streamReader 只输出正文分片
// 流末尾可能有 Content 为空但携带 Usage 的消息，直接跳过
type streamReader struct {
	sr *schema.StreamReader[*schema.Message]
}

func (r *streamReader) Recv() (string, error) {
	for {
		msg, err := r.sr.Recv()
		if err != nil {
			return "", err
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		return msg.Content, nil
	}
}

func (r *streamReader) Close() {
	r.sr.Close()
}
