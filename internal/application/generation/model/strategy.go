package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"therapeutic-story-api/internal/application/generation/prompt"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
)

// Output 单次生成结果，Provider 为实际产出文本的模型
type Output struct {
	Text     string
	Provider string
}

// Strategy 每次生成选定一次的模型策略
type Strategy interface {
	GenerateOnce(ctx context.Context, p prompt.Prompts) Output
	// GenerateStream 返回的 reader 已确认可用；之后的读取错误属于生成失败
	GenerateStream(ctx context.Context, p prompt.Prompts) (FragmentReader, string)
}

// Selector 在外部模型与本地生成器之间选择策略
type Selector struct {
	live     Client
	fallback Client
	timeout  time.Duration
}

// NewSelector 创建选择器，live 为 nil 表示未配置外部模型
func NewSelector(live Client, fallback Client, timeout time.Duration) *Selector {
	return &Selector{live: live, fallback: fallback, timeout: timeout}
}

// Select 选择本次生成使用的策略
func (s *Selector) Select() Strategy {
	if s.live == nil {
		return fallbackOnly{client: s.fallback}
	}
	return &guarded{live: s.live, fallback: s.fallback, timeout: s.timeout}
}

// fallbackOnly 未配置外部模型时直接使用本地生成器
type fallbackOnly struct {
	client Client
}

func (f fallbackOnly) GenerateOnce(ctx context.Context, p prompt.Prompts) Output {
	metrics.GenerationFallbackTotal.WithLabelValues("unconfigured").Inc()
	text, _ := f.client.GenerateOnce(ctx, p)
	return Output{Text: text, Provider: f.client.Name()}
}

func (f fallbackOnly) GenerateStream(ctx context.Context, p prompt.Prompts) (FragmentReader, string) {
	metrics.GenerationFallbackTotal.WithLabelValues("unconfigured").Inc()
	r, _ := f.client.GenerateStream(ctx, p)
	return r, f.client.Name()
}

// guarded 对外部模型做一次有时限的尝试，任何错误都回退到本地生成器，不重试
type guarded struct {
	live     Client
	fallback Client
	timeout  time.Duration
}

func (g *guarded) GenerateOnce(ctx context.Context, p prompt.Prompts) Output {
	callCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	text, err := g.live.GenerateOnce(callCtx, p)
	if err == nil {
		return Output{Text: text, Provider: g.live.Name()}
	}

	g.degrade(ctx, err)
	text, _ = g.fallback.GenerateOnce(ctx, p)
	return Output{Text: text, Provider: g.fallback.Name()}
}

func (g *guarded) GenerateStream(ctx context.Context, p prompt.Prompts) (FragmentReader, string) {
	streamCtx, cancel := context.WithCancel(ctx)
	// 时限只约束打开流与首个分片
	var timer *time.Timer
	if g.timeout > 0 {
		timer = time.AfterFunc(g.timeout, cancel)
	}
	stopTimer := func() bool {
		if timer == nil {
			return true
		}
		return timer.Stop()
	}

	reader, err := g.live.GenerateStream(streamCtx, p)
	if err != nil {
		stopTimer()
		cancel()
		return g.streamFallback(ctx, p, err)
	}

	first, err := reader.Recv()
	// 计时器已触发说明流上下文已被取消，后续读取必然失败
	if err == nil && !stopTimer() {
		err = context.DeadlineExceeded
	}
	if err != nil {
		stopTimer()
		reader.Close()
		cancel()
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("provider returned an empty stream")
		}
		return g.streamFallback(ctx, p, err)
	}

	return &primedReader{first: first, next: reader, cancel: cancel}, g.live.Name()
}

func (g *guarded) streamFallback(ctx context.Context, p prompt.Prompts, cause error) (FragmentReader, string) {
	g.degrade(ctx, cause)
	r, _ := g.fallback.GenerateStream(ctx, p)
	return r, g.fallback.Name()
}

func (g *guarded) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *guarded) degrade(ctx context.Context, cause error) {
	err := apperrors.ErrProviderUnavailable.WithError(cause)
	metrics.GenerationFallbackTotal.WithLabelValues("provider_error").Inc()
	logger.Warn(ctx, "model provider unavailable, using fallback generator",
		"provider", g.live.Name(),
		"error", err.Error(),
	)
}
