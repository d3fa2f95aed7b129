// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/domain/entity"
	"therapeutic-story-api/internal/interfaces/http/middleware"
)

// caller 当前请求的调用方，由 Identity 中间件注入
type caller struct {
	ID   string
	Role entity.Role
}

func callerFrom(c *gin.Context) caller {
	return caller{
		ID:   c.GetString(middleware.ContextUserID),
		Role: entity.Role(c.GetString(middleware.ContextRole)),
	}
}

// canSee 非审核角色只能看到自己提交的记录
func (u caller) canSee(record *entity.GenerationRecord) bool {
	return u.Role.SeesAll() || record.RequesterID == u.ID
}

// queueScope 审核队列的提交人过滤条件，空串表示全部
func (u caller) queueScope() string {
	if u.Role.SeesAll() {
		return ""
	}
	return u.ID
}
