package dto

import (
	"time"

	"therapeutic-story-api/internal/domain/entity"
)

// GenerationResponse 生成记录响应
type GenerationResponse struct {
	ID               string               `json:"id"`
	RequesterID      string               `json:"requester_id"`
	TemplateID       string               `json:"template_id,omitempty"`
	AgeGroup         string               `json:"age_group"`
	Category         string               `json:"category"`
	TherapeuticGoals []string             `json:"therapeutic_goals"`
	CustomPrompt     string               `json:"custom_prompt,omitempty"`
	Mode             string               `json:"mode"`
	Status           string               `json:"status"`
	Title            string               `json:"title,omitempty"`
	Content          *entity.StoryContent `json:"content,omitempty"`
	Provider         string               `json:"provider,omitempty"`
	FailureReason    string               `json:"failure_reason,omitempty"`
	ReviewerID       string               `json:"reviewer_id,omitempty"`
	ReviewNotes      string               `json:"review_notes,omitempty"`
	DecidedAt        *time.Time           `json:"decided_at,omitempty"`
	PublishedStoryID string               `json:"published_story_id,omitempty"`
	DurationMs       int                  `json:"duration_ms,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
}

// GenerationSummary 审核队列条目，不含完整内容
type GenerationSummary struct {
	ID           string    `json:"id"`
	RequesterID  string    `json:"requester_id"`
	AgeGroup     string    `json:"age_group"`
	Category     string    `json:"category"`
	Title        string    `json:"title"`
	ChapterCount int       `json:"chapter_count"`
	Provider     string    `json:"provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ApproveResponse 审核通过响应
type ApproveResponse struct {
	PublishedStoryID string `json:"published_story_id"`
}

// ToGenerationResponse 转换生成记录
func ToGenerationResponse(r *entity.GenerationRecord) *GenerationResponse {
	if r == nil {
		return nil
	}
	goals := make([]string, 0, len(r.TherapeuticGoals))
	for _, g := range r.TherapeuticGoals {
		goals = append(goals, string(g))
	}
	return &GenerationResponse{
		ID:               r.ID,
		RequesterID:      r.RequesterID,
		TemplateID:       deref(r.TemplateID),
		AgeGroup:         string(r.AgeGroup),
		Category:         string(r.Category),
		TherapeuticGoals: goals,
		CustomPrompt:     r.CustomPrompt,
		Mode:             string(r.Mode),
		Status:           string(r.Status),
		Title:            r.Title,
		Content:          r.Content,
		Provider:         r.Provider,
		FailureReason:    r.FailureReason,
		ReviewerID:       deref(r.ReviewerID),
		ReviewNotes:      deref(r.ReviewNotes),
		DecidedAt:        r.DecidedAt,
		PublishedStoryID: deref(r.PublishedStoryID),
		DurationMs:       r.DurationMs,
		CreatedAt:        r.CreatedAt,
		CompletedAt:      r.CompletedAt,
	}
}

// ToGenerationSummaries 转换审核队列
func ToGenerationSummaries(records []*entity.GenerationRecord) []*GenerationSummary {
	out := make([]*GenerationSummary, 0, len(records))
	for _, r := range records {
		out = append(out, &GenerationSummary{
			ID:           r.ID,
			RequesterID:  r.RequesterID,
			AgeGroup:     string(r.AgeGroup),
			Category:     string(r.Category),
			Title:        r.Title,
			ChapterCount: r.Content.ChapterCount(),
			Provider:     r.Provider,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
