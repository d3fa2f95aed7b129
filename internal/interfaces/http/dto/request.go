// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/domain/entity"
)

// CreateGenerationRequest 发起生成请求
// 取值合法性由编排器统一校验，这里只做形状绑定
type CreateGenerationRequest struct {
	TemplateID       string   `json:"template_id,omitempty"`
	AgeGroup         string   `json:"age_group" binding:"required"`
	Category         string   `json:"category" binding:"required"`
	TherapeuticGoals []string `json:"therapeutic_goals" binding:"required"`
	CustomPrompt     string   `json:"custom_prompt,omitempty"`
}

// ToEntity 转换为领域请求，提交人取自已认证身份
func (r *CreateGenerationRequest) ToEntity(requesterID string) entity.GenerationRequest {
	goals := make([]entity.TherapeuticGoal, 0, len(r.TherapeuticGoals))
	for _, g := range r.TherapeuticGoals {
		goals = append(goals, entity.TherapeuticGoal(strings.TrimSpace(g)))
	}
	return entity.GenerationRequest{
		RequesterID:      requesterID,
		TemplateID:       r.TemplateID,
		AgeGroup:         entity.AgeGroup(strings.TrimSpace(r.AgeGroup)),
		Category:         entity.StoryCategory(strings.TrimSpace(r.Category)),
		TherapeuticGoals: goals,
		CustomPrompt:     r.CustomPrompt,
	}
}

// ReviewDecisionRequest 审核决定请求
type ReviewDecisionRequest struct {
	Notes string `json:"notes" binding:"max=4000"`
}

// BindGenerationID 从路径参数绑定生成记录 ID
func BindGenerationID(c *gin.Context) string {
	return c.Param("gid")
}

// BindStoryID 从路径参数绑定故事 ID
func BindStoryID(c *gin.Context) string {
	return c.Param("sid")
}
