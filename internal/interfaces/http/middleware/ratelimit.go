// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/pkg/logger"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool
	// Requests 每个窗口内每个调用方允许的请求数
	Requests int
	Window   time.Duration
	// KeyFunc 由调用方与路由模板构建限流键
	KeyFunc func(userID, endpoint string) string
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// remainingReporter 可选能力：报告窗口内剩余配额
type remainingReporter interface {
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimit 按调用方限流，需挂在 Identity 之后
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.Requests <= 0 {
		cfg.Requests = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(userID, endpoint string) string {
			return "ratelimit:" + userID + ":" + endpoint
		}
	}
	reporter, _ := limiter.(remainingReporter)

	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			userID = "anonymous"
		}
		key := cfg.KeyFunc(userID, c.Request.Method+" "+c.FullPath())

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.Requests, cfg.Window)
		if err != nil {
			// 限流器故障时放行，避免影响业务
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err.Error())
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     429,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		if reporter != nil {
			if n, err := reporter.Remaining(c.Request.Context(), key, cfg.Requests, cfg.Window); err == nil {
				c.Header("X-RateLimit-Remaining", strconv.Itoa(n))
			}
		}
		c.Next()
	}
}
