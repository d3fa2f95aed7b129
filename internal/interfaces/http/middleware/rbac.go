// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/domain/entity"
)

// Permission 权限类型
type Permission string

// 权限常量定义
const (
	PermGenerate  Permission = "generation:create"
	PermReview    Permission = "generation:review"
	PermStoryRead Permission = "story:read"
)

// rolePermissions 角色-权限映射表
var rolePermissions = map[entity.Role][]Permission{
	entity.RoleAdmin:     {PermGenerate, PermReview, PermStoryRead},
	entity.RoleTherapist: {PermGenerate, PermReview, PermStoryRead},
	entity.RoleMember:    {PermGenerate, PermStoryRead},
}

// HasPermission 检查角色是否具有指定权限
func HasPermission(role entity.Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission 权限检查中间件
func RequirePermission(perm Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr := c.GetString(ContextRole)
		if roleStr == "" {
			abortForbidden(c, "missing role in context")
			return
		}
		if !HasPermission(entity.Role(roleStr), perm) {
			abortForbidden(c, "permission denied")
			return
		}
		c.Next()
	}
}

// abortForbidden 终止请求并返回 403
func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":     403,
		"message":  msg,
		"trace_id": c.GetString("trace_id"),
	})
}
