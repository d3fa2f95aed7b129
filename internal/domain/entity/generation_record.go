// Package entity 定义领域实体
package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "therapeutic-story-api/pkg/errors"
)

// GenerationStatus 生成记录状态
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusGenerating GenerationStatus = "generating"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
	GenerationStatusApproved   GenerationStatus = "approved"
	GenerationStatusRejected   GenerationStatus = "rejected"
)

// GenerationMode 生成模式
type GenerationMode string

const (
	GenerationModeSingle GenerationMode = "single"
	GenerationModeStream GenerationMode = "stream"
)

// ErrInvalidTransition 状态机不允许的迁移，按错误码与 ErrInvalidState 等价
var ErrInvalidTransition = apperrors.ErrInvalidState

// transitions 合法迁移表；approved/rejected/failed 为终态
var transitions = map[GenerationStatus][]GenerationStatus{
	GenerationStatusPending:    {GenerationStatusGenerating},
	GenerationStatusGenerating: {GenerationStatusCompleted, GenerationStatusFailed},
	GenerationStatusCompleted:  {GenerationStatusApproved, GenerationStatusRejected},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to GenerationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// GenerationRecord 故事生成记录
type GenerationRecord struct {
	ID               string            `json:"id" gorm:"type:uuid;primaryKey"`
	RequesterID      string            `json:"requester_id" gorm:"type:varchar(64);index;not null"`
	TemplateID       *string           `json:"template_id,omitempty" gorm:"type:uuid"`
	AgeGroup         AgeGroup          `json:"age_group" gorm:"type:varchar(16);not null"`
	Category         StoryCategory     `json:"category" gorm:"type:varchar(64);not null"`
	TherapeuticGoals []TherapeuticGoal `json:"therapeutic_goals" gorm:"type:jsonb;serializer:json"`
	CustomPrompt     string            `json:"custom_prompt,omitempty" gorm:"type:text"`
	Mode             GenerationMode    `json:"mode" gorm:"type:varchar(16);not null"`

	Title   string        `json:"title,omitempty" gorm:"type:varchar(255)"`
	Content *StoryContent `json:"content,omitempty" gorm:"type:jsonb;serializer:json"`

	Status           GenerationStatus `json:"status" gorm:"type:varchar(32);index;not null"`
	Provider         string           `json:"provider,omitempty" gorm:"type:varchar(64)"`
	FailureReason    string           `json:"failure_reason,omitempty" gorm:"type:text"`
	ReviewerID       *string          `json:"reviewer_id,omitempty" gorm:"type:varchar(64)"`
	ReviewNotes      *string          `json:"review_notes,omitempty" gorm:"type:text"`
	DecidedAt        *time.Time       `json:"decided_at,omitempty"`
	PublishedStoryID *string          `json:"published_story_id,omitempty" gorm:"type:uuid"`

	DurationMs  int        `json:"duration_ms,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (GenerationRecord) TableName() string {
	return "generation_records"
}

// GenerationRequest 生成请求（输入字段在记录创建后不可变）
type GenerationRequest struct {
	RequesterID      string            `json:"requester_id"`
	TemplateID       string            `json:"template_id,omitempty"`
	AgeGroup         AgeGroup          `json:"age_group"`
	Category         StoryCategory     `json:"category"`
	TherapeuticGoals []TherapeuticGoal `json:"therapeutic_goals"`
	CustomPrompt     string            `json:"custom_prompt,omitempty"`
}

// NewGenerationRecord 创建生成记录；pending 与 generating 合并，记录直接以 generating 创建
func NewGenerationRecord(req GenerationRequest, mode GenerationMode) *GenerationRecord {
	now := time.Now()
	r := &GenerationRecord{
		ID:               uuid.NewString(),
		RequesterID:      req.RequesterID,
		AgeGroup:         req.AgeGroup,
		Category:         req.Category,
		TherapeuticGoals: append([]TherapeuticGoal(nil), req.TherapeuticGoals...),
		CustomPrompt:     strings.TrimSpace(req.CustomPrompt),
		Mode:             mode,
		Status:           GenerationStatusGenerating,
		StartedAt:        &now,
		CreatedAt:        now,
	}
	if id := strings.TrimSpace(req.TemplateID); id != "" {
		r.TemplateID = &id
	}
	return r
}

// Request 还原生成请求
func (r *GenerationRecord) Request() GenerationRequest {
	req := GenerationRequest{
		RequesterID:      r.RequesterID,
		AgeGroup:         r.AgeGroup,
		Category:         r.Category,
		TherapeuticGoals: r.TherapeuticGoals,
		CustomPrompt:     r.CustomPrompt,
	}
	if r.TemplateID != nil {
		req.TemplateID = *r.TemplateID
	}
	return req
}

func (r *GenerationRecord) transitionTo(to GenerationStatus) error {
	if !CanTransition(r.Status, to) {
		return ErrInvalidTransition.WithDetail(fmt.Sprintf("cannot move generation %s from %s to %s", r.ID, r.Status, to))
	}
	return nil
}

// Complete 写入校验后的内容，进入 completed
func (r *GenerationRecord) Complete(content *StoryContent, provider string) error {
	if err := r.transitionTo(GenerationStatusCompleted); err != nil {
		return err
	}
	if content == nil || strings.TrimSpace(content.Title) == "" {
		return apperrors.Validation("content", "completed generation requires a titled content payload")
	}
	now := time.Now()
	r.Status = GenerationStatusCompleted
	r.Title = content.Title
	r.Content = content
	r.Provider = provider
	r.finish(now)
	return nil
}

// Fail 生成失败，不记录任何内容
func (r *GenerationRecord) Fail(reason, provider string) error {
	if err := r.transitionTo(GenerationStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	r.Status = GenerationStatusFailed
	r.Title = ""
	r.Content = nil
	r.Provider = provider
	r.FailureReason = reason
	r.finish(now)
	return nil
}

// Approve 审核通过并关联已发布故事
func (r *GenerationRecord) Approve(reviewerID, notes, storyID string) error {
	if err := r.transitionTo(GenerationStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	r.Status = GenerationStatusApproved
	r.ReviewerID = &reviewerID
	r.ReviewNotes = &notes
	r.DecidedAt = &now
	r.PublishedStoryID = &storyID
	return nil
}

// Reject 审核拒绝
func (r *GenerationRecord) Reject(reviewerID, notes string) error {
	if err := r.transitionTo(GenerationStatusRejected); err != nil {
		return err
	}
	now := time.Now()
	r.Status = GenerationStatusRejected
	r.ReviewerID = &reviewerID
	r.ReviewNotes = &notes
	r.DecidedAt = &now
	return nil
}

// IsTerminal 是否已不再变化
func (r *GenerationRecord) IsTerminal() bool {
	switch r.Status {
	case GenerationStatusApproved, GenerationStatusRejected, GenerationStatusFailed:
		return true
	}
	return false
}

// HasContent 是否持有生成内容
func (r *GenerationRecord) HasContent() bool {
	return r.Content != nil && r.Title != ""
}

func (r *GenerationRecord) finish(now time.Time) {
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.DurationMs = int(now.Sub(*r.StartedAt).Milliseconds())
	}
}
