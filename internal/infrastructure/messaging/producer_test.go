package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapeutic-story-api/internal/domain/entity"
)

func TestProducer_PublishGenerationEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	producer := NewProducer(rdb, 100)

	record := entity.NewGenerationRecord(entity.GenerationRequest{
		RequesterID:      "user-1",
		AgeGroup:         entity.AgeGroup8To10,
		Category:         entity.CategoryAnxietyManagement,
		TherapeuticGoals: []entity.TherapeuticGoal{entity.GoalReduceAnxiety},
	}, entity.GenerationModeStream)
	require.NoError(t, record.Fail("validation failed", "fallback"))

	require.NoError(t, producer.PublishGenerationEvent(context.Background(), "generation.failed", record))

	entries, err := rdb.XRange(context.Background(), string(StreamGenerationEvents), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, ok := entries[0].Values["data"].(string)
	require.True(t, ok)
	var msg Message
	require.NoError(t, jsonUnmarshal(raw, &msg))
	assert.Equal(t, "generation.failed", msg.Type)
	assert.Equal(t, record.ID, msg.Metadata["generation_id"])

	var evt GenerationEventMessage
	require.NoError(t, msg.UnmarshalPayload(&evt))
	assert.Equal(t, "failed", evt.Status)
	assert.Equal(t, "validation failed", evt.FailureReason)
}

func jsonUnmarshal(raw string, v interface{}) error {
	return json.Unmarshal([]byte(raw), v)
}
