// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/domain/repository"
	"therapeutic-story-api/internal/interfaces/http/dto"
	"therapeutic-story-api/pkg/logger"
)

// StoryHandler 已发布故事处理器
type StoryHandler struct {
	stories repository.StoryRepository
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(stories repository.StoryRepository) *StoryHandler {
	return &StoryHandler{stories: stories}
}

// GetStory 获取已发布故事树
// @Summary 获取已发布故事
// @Tags Stories
// @Produce json
// @Param sid path string true "故事 ID"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/stories/{sid} [get]
func (h *StoryHandler) GetStory(c *gin.Context) {
	ctx := c.Request.Context()
	storyID := dto.BindStoryID(c)

	story, err := h.stories.GetStoryTree(ctx, storyID)
	if err != nil {
		logger.Error(ctx, "failed to get story", err, "story_id", storyID)
		dto.InternalError(c, "failed to get story")
		return
	}
	if story == nil {
		dto.NotFound(c, "story not found")
		return
	}
	dto.Success(c, dto.ToStoryResponse(story))
}
