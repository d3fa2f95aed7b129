// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/pkg/metrics"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(stream), "error").Inc()
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(string(stream), "ok").Inc()
	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishGenerationEvent 发布生成记录生命周期事件
func (p *Producer) PublishGenerationEvent(ctx context.Context, eventType string, record *entity.GenerationRecord) error {
	evt := &GenerationEventMessage{
		GenerationID:  record.ID,
		RequesterID:   record.RequesterID,
		Status:        string(record.Status),
		Title:         record.Title,
		Provider:      record.Provider,
		FailureReason: record.FailureReason,
		OccurredAt:    time.Now(),
	}
	if record.ReviewerID != nil {
		evt.ReviewerID = *record.ReviewerID
	}
	if record.PublishedStoryID != nil {
		evt.PublishedStoryID = *record.PublishedStoryID
	}

	msg, err := NewMessage(uuid.NewString(), eventType, evt)
	if err != nil {
		return err
	}
	msg.SetMetadata("generation_id", record.ID)
	msg.SetMetadata("mode", string(record.Mode))

	_, err = p.Publish(ctx, StreamGenerationEvents, msg)
	return err
}

// GenerationEventMessage 生成生命周期事件
type GenerationEventMessage struct {
	GenerationID     string    `json:"generation_id"`
	RequesterID      string    `json:"requester_id"`
	Status           string    `json:"status"`
	Title            string    `json:"title,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	ReviewerID       string    `json:"reviewer_id,omitempty"`
	PublishedStoryID string    `json:"published_story_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}
