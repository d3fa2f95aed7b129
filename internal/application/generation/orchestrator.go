// Package generation 编排故事生成记录的完整生命周期
package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"therapeutic-story-api/internal/application/generation/model"
	"therapeutic-story-api/internal/application/generation/prompt"
	"therapeutic-story-api/internal/application/generation/relay"
	"therapeutic-story-api/internal/application/generation/validator"
	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/domain/repository"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
	"therapeutic-story-api/pkg/tracer"
)

// 生命周期事件类型
const (
	EventCompleted = "generation.completed"
	EventFailed    = "generation.failed"
	EventApproved  = "generation.approved"
	EventRejected  = "generation.rejected"
)

const defaultMaxCustomPromptRunes = 2000

// Materializer 发布物化器
type Materializer interface {
	Materialize(ctx context.Context, record *entity.GenerationRecord) (string, error)
}

// EventPublisher 生命周期事件发布
type EventPublisher interface {
	PublishGenerationEvent(ctx context.Context, eventType string, record *entity.GenerationRecord) error
}

// Options 编排器参数
type Options struct {
	MaxCustomPromptRunes int
}

// Orchestrator 生成编排器
type Orchestrator struct {
	builder      *prompt.Builder
	selector     *model.Selector
	records      repository.GenerationRepository
	templates    repository.TemplateRepository
	tx           repository.Transactor
	materializer Materializer
	events       EventPublisher
	opts         Options

	inflight sync.WaitGroup
}

// NewOrchestrator 创建编排器，events 可为 nil
func NewOrchestrator(
	builder *prompt.Builder,
	selector *model.Selector,
	records repository.GenerationRepository,
	templates repository.TemplateRepository,
	tx repository.Transactor,
	materializer Materializer,
	events EventPublisher,
	opts Options,
) *Orchestrator {
	if opts.MaxCustomPromptRunes <= 0 {
		opts.MaxCustomPromptRunes = defaultMaxCustomPromptRunes
	}
	return &Orchestrator{
		builder:      builder,
		selector:     selector,
		records:      records,
		templates:    templates,
		tx:           tx,
		materializer: materializer,
		events:       events,
		opts:         opts,
	}
}

// Start 校验请求并创建生成记录
// sink 为 nil 时同步生成，返回时记录已处于 completed 或 failed；
// 否则立即返回记录 ID，生成在与调用方解耦的后台 goroutine 中完成。
func (o *Orchestrator) Start(ctx context.Context, req entity.GenerationRequest, sink relay.Sink) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.Start")
	defer span.End()

	req = normalizeRequest(req)
	tpl, err := o.validateRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	prompts, err := o.builder.Build(ctx, req, tpl)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Validation("template_id", err.Error())
	}

	mode := entity.GenerationModeSingle
	if sink != nil {
		mode = entity.GenerationModeStream
	}
	record := entity.NewGenerationRecord(req, mode)
	if err := o.records.Create(ctx, record); err != nil {
		span.RecordError(err)
		return "", apperrors.ErrPersistence.WithError(err)
	}

	span.SetAttributes(
		attribute.String("generation.id", record.ID),
		attribute.String("generation.mode", string(mode)),
	)
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, record.ID)
	logger.Info(ctx, "generation started",
		"mode", mode,
		"age_group", record.AgeGroup,
		"category", record.Category,
	)

	strategy := o.selector.Select()

	if sink == nil {
		if err := o.generateOnce(ctx, record, strategy, prompts); err != nil {
			return record.ID, err
		}
		return record.ID, nil
	}

	// 后台生成不随请求连接取消，保留上下文中的追踪与日志字段
	bg := context.WithoutCancel(ctx)
	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		_ = o.generateStream(bg, record, strategy, prompts, sink)
	}()
	return record.ID, nil
}

// Wait 阻塞直到所有后台生成结束
func (o *Orchestrator) Wait() {
	o.inflight.Wait()
}

func (o *Orchestrator) generateOnce(ctx context.Context, record *entity.GenerationRecord, strategy model.Strategy, p prompt.Prompts) error {
	start := time.Now()
	out := strategy.GenerateOnce(ctx, p)
	return o.conclude(ctx, record, out.Text, out.Provider, nil, start)
}

func (o *Orchestrator) generateStream(ctx context.Context, record *entity.GenerationRecord, strategy model.Strategy, p prompt.Prompts, sink relay.Sink) error {
	ctx, span := tracer.Start(ctx, "generation.Stream", trace.WithAttributes(attribute.String("generation.id", record.ID)))
	defer span.End()

	start := time.Now()
	reader, provider := strategy.GenerateStream(ctx, p)
	if reader == nil {
		err := fmt.Errorf("no fragment source from %s", provider)
		relay.Fail(ctx, record.ID, sink, err)
		return o.conclude(ctx, record, "", provider, err, start)
	}
	buffer, err := relay.Run(ctx, record.ID, reader, sink)
	return o.conclude(ctx, record, buffer, provider, err, start)
}

// conclude 校验累积输出并持久化终态
func (o *Orchestrator) conclude(ctx context.Context, record *entity.GenerationRecord, buffer, provider string, genErr error, started time.Time) error {
	if genErr != nil {
		_ = record.Fail(apperrors.ErrGenerationFailed.WithError(genErr).Error(), provider)
	} else if content, err := validator.Validate(buffer); err != nil {
		_ = record.Fail(err.Error(), provider)
	} else if err := record.Complete(content, provider); err != nil {
		_ = record.Fail(err.Error(), provider)
	}

	ok, err := o.records.UpdateIfStatus(ctx, record, entity.GenerationStatusGenerating)
	if err != nil {
		logger.Error(ctx, "failed to persist generation outcome", err, "status", record.Status)
		return apperrors.ErrPersistence.WithError(err)
	}
	if !ok {
		logger.Warn(ctx, "generation record left generating state unexpectedly")
		return apperrors.ErrInvalidState.WithDetail(fmt.Sprintf("generation %s is no longer generating", record.ID))
	}

	metrics.GenerationTotal.WithLabelValues(string(record.Mode), string(record.Status)).Inc()
	metrics.GenerationDuration.WithLabelValues(string(record.Mode), provider).Observe(time.Since(started).Seconds())

	if record.Status == entity.GenerationStatusCompleted {
		logger.Info(ctx, "generation completed",
			"provider", provider,
			"title", record.Title,
			"chapters", record.Content.ChapterCount(),
			"duration_ms", record.DurationMs,
		)
		o.publish(ctx, EventCompleted, record)
	} else {
		logger.Warn(ctx, "generation failed",
			"provider", provider,
			"reason", record.FailureReason,
		)
		o.publish(ctx, EventFailed, record)
	}
	return nil
}

// Get 读取生成记录
func (o *Orchestrator) Get(ctx context.Context, id string) (*entity.GenerationRecord, error) {
	record, err := o.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperrors.ErrNotFound.WithDetail("generation " + id)
	}
	return record, nil
}

func (o *Orchestrator) publish(ctx context.Context, eventType string, record *entity.GenerationRecord) {
	if o.events == nil {
		return
	}
	if err := o.events.PublishGenerationEvent(ctx, eventType, record); err != nil {
		logger.Warn(ctx, "failed to publish generation event",
			"event", eventType,
			"generation_id", record.ID,
			"error", err.Error(),
		)
	}
}

func normalizeRequest(req entity.GenerationRequest) entity.GenerationRequest {
	req.RequesterID = strings.TrimSpace(req.RequesterID)
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	req.CustomPrompt = strings.TrimSpace(req.CustomPrompt)
	return req
}

// validateRequest 校验请求，返回引用的模板（可为 nil）
func (o *Orchestrator) validateRequest(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationTemplate, error) {
	if req.RequesterID == "" {
		return nil, apperrors.Validation("requester_id", "is required")
	}
	if !req.AgeGroup.Valid() {
		return nil, apperrors.Validation("age_group", fmt.Sprintf("unknown value %q", req.AgeGroup))
	}
	if !req.Category.Valid() {
		return nil, apperrors.Validation("category", fmt.Sprintf("unknown value %q", req.Category))
	}
	if len(req.TherapeuticGoals) == 0 {
		return nil, apperrors.Validation("therapeutic_goals", "at least one goal is required")
	}
	seen := make(map[entity.TherapeuticGoal]struct{}, len(req.TherapeuticGoals))
	for i, g := range req.TherapeuticGoals {
		field := fmt.Sprintf("therapeutic_goals[%d]", i)
		if !g.Valid() {
			return nil, apperrors.Validation(field, fmt.Sprintf("unknown value %q", g))
		}
		if _, dup := seen[g]; dup {
			return nil, apperrors.Validation(field, fmt.Sprintf("duplicate goal %q", g))
		}
		seen[g] = struct{}{}
	}
	if n := utf8.RuneCountInString(req.CustomPrompt); n > o.opts.MaxCustomPromptRunes {
		return nil, apperrors.Validation("custom_prompt",
			fmt.Sprintf("must be at most %d characters, got %d", o.opts.MaxCustomPromptRunes, n))
	}

	if req.TemplateID == "" {
		return nil, nil
	}
	tpl, err := o.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil || !tpl.Active {
		return nil, apperrors.Validation("template_id", "does not reference an active template")
	}
	return tpl, nil
}
