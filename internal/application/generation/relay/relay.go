// Package relay 将增量生成结果转发给订阅方，同时独立累积完整输出
package relay

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"therapeutic-story-api/pkg/logger"
	"therapeutic-story-api/pkg/metrics"
)

// EventType 事件类型
type EventType string

const (
	EventStart EventType = "start"
	EventData  EventType = "data"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event 发送给订阅方的事件
type Event struct {
	Type     EventType `json:"type"`
	RecordID string    `json:"record_id,omitempty"`
	Fragment string    `json:"fragment,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// Sink 订阅方，随时可能断开
// Send 返回错误视为断开；终止事件之后 Close 恰好被调用一次
type Sink interface {
	Send(Event) error
	Close()
}

// Source 分片来源，结束时返回 io.EOF
type Source interface {
	Recv() (string, error)
	Close()
}

// Run 转发并累积分片
// 依次发送 start、若干 data、以及 done 或 error 之一，随后关闭 sink。
// 投递由独立 goroutine 完成，慢速或已断开的 sink 不会阻塞累积。
func Run(ctx context.Context, recordID string, src Source, sink Sink) (string, error) {
	metrics.StreamsActive.Inc()
	defer metrics.StreamsActive.Dec()
	defer src.Close()

	box := newMailbox(ctx, sink)
	go box.deliver()

	box.push(Event{Type: EventStart, RecordID: recordID})

	var buf strings.Builder
	for {
		chunk, err := src.Recv()
		if errors.Is(err, io.EOF) {
			box.finish(Event{Type: EventDone, RecordID: recordID})
			return buf.String(), nil
		}
		if err != nil {
			box.finish(Event{Type: EventError, RecordID: recordID, Message: err.Error()})
			return buf.String(), err
		}
		buf.WriteString(chunk)
		box.push(Event{Type: EventData, Fragment: chunk})
	}
}

// Fail 在无法开始转发时发送 start 与 error 并关闭 sink
func Fail(ctx context.Context, recordID string, sink Sink, cause error) {
	box := newMailbox(ctx, sink)
	go box.deliver()
	box.push(Event{Type: EventStart, RecordID: recordID})
	box.finish(Event{Type: EventError, RecordID: recordID, Message: cause.Error()})
}

// mailbox 无界队列，push 从不阻塞
type mailbox struct {
	ctx    context.Context
	sink   Sink
	mu     sync.Mutex
	queue  []Event
	closed bool
	gone   bool
	wake   chan struct{}
}

func newMailbox(ctx context.Context, sink Sink) *mailbox {
	return &mailbox{ctx: ctx, sink: sink, wake: make(chan struct{}, 1)}
}

func (m *mailbox) push(e Event) {
	m.mu.Lock()
	if m.gone || m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()
	m.signal()
}

// finish 投递终止事件并在其后关闭 sink
func (m *mailbox) finish(e Event) {
	m.mu.Lock()
	if !m.gone && !m.closed {
		m.queue = append(m.queue, e)
	}
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) deliver() {
	defer m.sink.Close()

	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		for _, e := range batch {
			if err := m.sink.Send(e); err != nil {
				m.disconnect(err)
				break
			}
		}

		gone := m.isGone()
		if closed && (len(batch) == 0 || gone) {
			return
		}
		// 已断开时不再投递，只等待终止后关闭 sink
		if len(batch) == 0 || gone {
			<-m.wake
		}
	}
}

func (m *mailbox) disconnect(err error) {
	m.mu.Lock()
	m.gone = true
	m.queue = nil
	m.mu.Unlock()

	metrics.StreamSinkDisconnects.Inc()
	logger.Debug(m.ctx, "stream sink disconnected, continuing accumulation", "error", err.Error())
}

func (m *mailbox) isGone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gone
}
