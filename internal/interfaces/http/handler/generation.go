// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/application/generation/relay"
	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/interfaces/http/dto"
	apperrors "therapeutic-story-api/pkg/errors"
	"therapeutic-story-api/pkg/logger"
)

// GenerationService 生成编排能力
type GenerationService interface {
	Start(ctx context.Context, req entity.GenerationRequest, sink relay.Sink) (string, error)
	Get(ctx context.Context, id string) (*entity.GenerationRecord, error)
	ListReviewable(ctx context.Context, requesterID string) ([]*entity.GenerationRecord, error)
	Approve(ctx context.Context, id, reviewerID, notes string) (string, error)
	Reject(ctx context.Context, id, reviewerID, notes string) error
}

// GenerationHandler 生成记录处理器
type GenerationHandler struct {
	svc GenerationService
}

// NewGenerationHandler 创建生成记录处理器
func NewGenerationHandler(svc GenerationService) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

// Create 同步生成
// @Summary 同步生成故事
// @Description 校验请求并生成，返回处于 completed 或 failed 的记录
// @Tags Generations
// @Accept json
// @Produce json
// @Param body body dto.CreateGenerationRequest true "生成请求"
// @Success 201 {object} dto.Response[dto.GenerationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/generations [post]
func (h *GenerationHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	user := callerFrom(c)

	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	id, err := h.svc.Start(ctx, req.ToEntity(user.ID), nil)
	if err != nil {
		logger.Warn(ctx, "generation request rejected", "error", err.Error())
		dto.FromError(c, err)
		return
	}

	record, err := h.svc.Get(ctx, id)
	if err != nil {
		logger.Error(ctx, "failed to load generation", err, "generation_id", id)
		dto.FromError(c, err)
		return
	}
	dto.Created(c, dto.ToGenerationResponse(record))
}

// Get 获取生成记录
// @Summary 获取生成记录
// @Tags Generations
// @Produce json
// @Param gid path string true "生成记录 ID"
// @Success 200 {object} dto.Response[dto.GenerationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/generations/{gid} [get]
func (h *GenerationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	record, err := h.svc.Get(ctx, dto.BindGenerationID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}
	// 不暴露他人记录的存在性
	if !callerFrom(c).canSee(record) {
		dto.FromError(c, apperrors.ErrNotFound.WithDetail("generation "+record.ID))
		return
	}
	dto.Success(c, dto.ToGenerationResponse(record))
}

// ListReviewable 审核队列
// @Summary 待审核生成记录
// @Description 审核角色看到全部，成员只看到自己提交的
// @Tags Generations
// @Produce json
// @Success 200 {object} dto.Response[[]dto.GenerationSummary]
// @Router /v1/generations/reviewable [get]
func (h *GenerationHandler) ListReviewable(c *gin.Context) {
	ctx := c.Request.Context()
	records, err := h.svc.ListReviewable(ctx, callerFrom(c).queueScope())
	if err != nil {
		logger.Error(ctx, "failed to list reviewable generations", err)
		dto.InternalError(c, "failed to list reviewable generations")
		return
	}
	dto.SuccessWithMeta(c, dto.ToGenerationSummaries(records), &dto.ListMeta{Total: len(records)})
}

// Approve 审核通过并发布
// @Summary 审核通过
// @Tags Generations
// @Accept json
// @Produce json
// @Param gid path string true "生成记录 ID"
// @Param body body dto.ReviewDecisionRequest false "审核意见"
// @Success 200 {object} dto.Response[dto.ApproveResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/generations/{gid}/approve [post]
func (h *GenerationHandler) Approve(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReviewDecisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	storyID, err := h.svc.Approve(ctx, dto.BindGenerationID(c), callerFrom(c).ID, req.Notes)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, dto.ApproveResponse{PublishedStoryID: storyID})
}

// Reject 审核拒绝
// @Summary 审核拒绝
// @Tags Generations
// @Accept json
// @Produce json
// @Param gid path string true "生成记录 ID"
// @Param body body dto.ReviewDecisionRequest true "拒绝理由"
// @Success 200 {object} dto.Response[map[string]any]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/generations/{gid}/reject [post]
func (h *GenerationHandler) Reject(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ReviewDecisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if err := h.svc.Reject(ctx, dto.BindGenerationID(c), callerFrom(c).ID, req.Notes); err != nil {
		dto.FromError(c, err)
		return
	}
	dto.Success(c, gin.H{})
}

// bindOptionalJSON 允许空请求体
func bindOptionalJSON(c *gin.Context, out any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
