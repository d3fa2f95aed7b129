package callback

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"therapeutic-story-api/pkg/metrics"
)

type startTimeKey struct{}

func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			call := CallInfoFromContext(ctx)
			var cfg *model.Config
			if input != nil {
				cfg = input.Config
			}
			attrs := []attribute.KeyValue{
				attribute.String("llm.operation", call.Operation),
				attribute.String("llm.provider", call.Provider),
				attribute.String("llm.model", modelName(call, cfg)),
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.type", info.Type))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm."+call.Operation, trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			var cfg *model.Config
			if output != nil {
				usage, cfg = output.TokenUsage, output.Config
			}
			finish(ctx, cfg, usage, nil)
			return ctx
		},

		// 流式输出的副本必须读完并关闭，否则会阻塞上游
		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				var usage *model.TokenUsage
				var cfg *model.Config
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						finish(ctx, cfg, usage, err)
						return
					}
					if chunk == nil {
						continue
					}
					if chunk.TokenUsage != nil {
						usage = chunk.TokenUsage
					}
					if chunk.Config != nil {
						cfg = chunk.Config
					}
				}
				finish(ctx, cfg, usage, nil)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			finish(ctx, nil, nil, err)
			return ctx
		},
	}
}

// finish 记录调用结果并结束 OnStart 创建的 span
func finish(ctx context.Context, cfg *model.Config, usage *model.TokenUsage, err error) {
	call := CallInfoFromContext(ctx)
	name := modelName(call, cfg)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMCallTotal.WithLabelValues(call.Provider, name, status).Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(call.Provider, name).Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(call.Provider, name, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(call.Provider, name, "completion").Add(float64(usage.CompletionTokens))
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelName(call CallInfo, cfg *model.Config) string {
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	return call.Model
}
