package generation

import (
	"context"
	"fmt"
	"strings"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/domain/repository"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
	"therapeutic-story-api/pkg/tracer"
)

// ListReviewable 待审核记录，按创建时间倒序；requesterID 为空时不过滤
func (o *Orchestrator) ListReviewable(ctx context.Context, requesterID string) ([]*entity.GenerationRecord, error) {
	return o.records.List(ctx, repository.GenerationFilter{
		Status:      entity.GenerationStatusCompleted,
		RequesterID: strings.TrimSpace(requesterID),
	})
}

// Approve 审核通过：先物化故事，再在同一事务内条件翻转状态
// 物化失败时记录保持 completed，可重试
func (o *Orchestrator) Approve(ctx context.Context, id, reviewerID, notes string) (string, error) {
	ctx, span := tracer.Start(ctx, "generation.Approve")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, id)

	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return "", apperrors.Validation("reviewer_id", "is required")
	}
	record, err := o.reviewable(ctx, id)
	if err != nil {
		o.countDecision("approve", err)
		return "", err
	}

	var storyID string
	err = o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		sid, err := o.materializer.Materialize(ctx, record)
		if err != nil {
			return err
		}
		if err := record.Approve(reviewerID, strings.TrimSpace(notes), sid); err != nil {
			return err
		}
		ok, err := o.records.UpdateIfStatus(ctx, record, entity.GenerationStatusCompleted)
		if err != nil {
			return apperrors.ErrPersistence.WithError(err)
		}
		if !ok {
			return apperrors.ErrInvalidState.WithDetail(fmt.Sprintf("generation %s was decided concurrently", id))
		}
		storyID = sid
		return nil
	})
	o.countDecision("approve", err)
	if err != nil {
		span.RecordError(err)
		logger.Warn(ctx, "approval failed", "reviewer_id", reviewerID, "error", err.Error())
		return "", err
	}

	logger.Info(ctx, "generation approved", "reviewer_id", reviewerID, "story_id", storyID)
	o.publish(ctx, EventApproved, record)
	return storyID, nil
}

// Reject 审核拒绝，notes 必填
func (o *Orchestrator) Reject(ctx context.Context, id, reviewerID, notes string) error {
	ctx, span := tracer.Start(ctx, "generation.Reject")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.GenerationIDKey, id)

	reviewerID = strings.TrimSpace(reviewerID)
	notes = strings.TrimSpace(notes)
	if reviewerID == "" {
		return apperrors.Validation("reviewer_id", "is required")
	}
	if notes == "" {
		o.countDecision("reject", apperrors.ErrValidation)
		return apperrors.Validation("notes", "are required when rejecting")
	}

	record, err := o.reviewable(ctx, id)
	if err == nil {
		err = record.Reject(reviewerID, notes)
	}
	if err == nil {
		var ok bool
		ok, err = o.records.UpdateIfStatus(ctx, record, entity.GenerationStatusCompleted)
		if err != nil {
			err = apperrors.ErrPersistence.WithError(err)
		} else if !ok {
			err = apperrors.ErrInvalidState.WithDetail(fmt.Sprintf("generation %s was decided concurrently", id))
		}
	}
	o.countDecision("reject", err)
	if err != nil {
		span.RecordError(err)
		return err
	}

	logger.Info(ctx, "generation rejected", "reviewer_id", reviewerID)
	o.publish(ctx, EventRejected, record)
	return nil
}

// reviewable 读取记录并要求其处于 completed
func (o *Orchestrator) reviewable(ctx context.Context, id string) (*entity.GenerationRecord, error) {
	record, err := o.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != entity.GenerationStatusCompleted {
		return nil, apperrors.ErrInvalidState.WithDetail(
			fmt.Sprintf("generation %s is %s, only completed generations can be reviewed", id, record.Status))
	}
	return record, nil
}

func (o *Orchestrator) countDecision(decision string, err error) {
	status := "ok"
	if err != nil {
		status = string(apperrors.AsAppError(err).Code)
	}
	metrics.ReviewDecisionTotal.WithLabelValues(decision, status).Inc()
}
