// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
// rateLimit 只作用于会触发模型调用的生成入口
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, rateLimit gin.HandlerFunc) {
	generations := v1.Group("/generations")
	{
		create := middleware.RequirePermission(middleware.PermGenerate)
		generations.POST("", create, rateLimit, h.Generation.Create)
		generations.POST("/stream", create, rateLimit, h.Stream.StreamGeneration)

		// 静态路径先于参数路径注册
		generations.GET("/reviewable", h.Generation.ListReviewable)
		generations.GET("/:gid", h.Generation.Get)

		review := middleware.RequirePermission(middleware.PermReview)
		generations.POST("/:gid/approve", review, h.Generation.Approve)
		generations.POST("/:gid/reject", review, h.Generation.Reject)
	}

	stories := v1.Group("/stories")
	{
		stories.GET("/:sid", middleware.RequirePermission(middleware.PermStoryRead), h.Story.GetStory)
	}
}
