// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"io"
	"sync"

	"github.com/gin-gonic/gin"

	"therapeutic-story-api/internal/application/generation/relay"
	"therapeutic-story-api/internal/interfaces/http/dto"
	"therapeutic-story-api/pkg/logger"
)

var errClientGone = errors.New("sse client disconnected")

// sseSink 将中继事件交给请求 goroutine 写出
// 请求结束（客户端断开）后 Send 立即失败，生成侧据此停止投递
type sseSink struct {
	events chan relay.Event
	done   chan struct{}
	once   sync.Once
}

func newSSESink() *sseSink {
	return &sseSink{
		events: make(chan relay.Event, 16),
		done:   make(chan struct{}),
	}
}

func (s *sseSink) Send(e relay.Event) error {
	select {
	case <-s.done:
		return errClientGone
	default:
	}
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errClientGone
	}
}

func (s *sseSink) Close() {
	close(s.events)
}

func (s *sseSink) detach() {
	s.once.Do(func() { close(s.done) })
}

// StreamHandler 流式生成处理器
type StreamHandler struct {
	svc GenerationService
}

// NewStreamHandler 创建流式生成处理器
func NewStreamHandler(svc GenerationService) *StreamHandler {
	return &StreamHandler{svc: svc}
}

// StreamGeneration 流式生成
// @Summary 流式生成故事
// @Description 通过 SSE 推送 start、data、done/error 事件；断开连接不影响生成与落库
// @Tags Generations
// @Accept json
// @Produce text/event-stream
// @Param body body dto.CreateGenerationRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/generations/stream [post]
func (h *StreamHandler) StreamGeneration(c *gin.Context) {
	ctx := c.Request.Context()
	user := callerFrom(c)

	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	sink := newSSESink()
	defer sink.detach()

	id, err := h.svc.Start(ctx, req.ToEntity(user.ID), sink)
	if err != nil {
		logger.Warn(ctx, "stream generation rejected", "error", err.Error())
		dto.FromError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Generation-ID", id)

	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-sink.events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return e.Type != relay.EventDone && e.Type != relay.EventError
		case <-ctx.Done():
			logger.Info(ctx, "stream client disconnected", "generation_id", id)
			return false
		}
	})
}
