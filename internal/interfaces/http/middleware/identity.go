// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/pkg/logger"
)

// 身份信息在 gin.Context 中的键
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// IdentityConfig 身份配置
type IdentityConfig struct {
	// UserHeader 调用方 ID 请求头
	UserHeader string
	// RoleHeader 调用方角色请求头
	RoleHeader string
	// SkipPaths 跳过身份校验的路径前缀
	SkipPaths []string
}

// DefaultSkipPaths 默认跳过身份校验的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}

// Identity 身份中间件
// 令牌校验由上游网关完成，这里只读取网关注入的用户与角色头
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-User-ID"
	}
	if cfg.RoleHeader == "" {
		cfg.RoleHeader = "X-User-Role"
	}

	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		userID := strings.TrimSpace(c.GetHeader(cfg.UserHeader))
		if userID == "" {
			abortUnauthorized(c, "missing caller identity")
			return
		}
		role := entity.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(cfg.RoleHeader))))
		if !role.Valid() {
			abortUnauthorized(c, "unknown caller role")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, string(role))
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     401,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
