package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []Event
	failFrom int // 第 failFrom 次 Send 起返回错误，0 表示不失败
	block    chan struct{}
	closed   chan struct{}
	closeCnt int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{closed: make(chan struct{})}
}

func (s *recordingSink) Send(e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFrom > 0 && len(s.events)+1 >= s.failFrom {
		return errors.New("client went away")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	s.closeCnt++
	s.mu.Unlock()
	close(s.closed)
}

func (s *recordingSink) waitClosed(t *testing.T) []Event {
	t.Helper()
	select {
	case <-s.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was never closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type chunkSource struct {
	chunks []string
	err    error
	closed bool
}

func (c *chunkSource) Recv() (string, error) {
	if len(c.chunks) == 0 {
		if c.err != nil {
			return "", c.err
		}
		return "", io.EOF
	}
	v := c.chunks[0]
	c.chunks = c.chunks[1:]
	return v, nil
}

func (c *chunkSource) Close() { c.closed = true }

func types(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestRun_RelaysInOrder(t *testing.T) {
	sink := newRecordingSink()
	src := &chunkSource{chunks: []string{"{\"ti", "tle\":", "\"x\"}"}}

	buf, err := Run(context.Background(), "rec-1", src, sink)
	require.NoError(t, err)
	assert.Equal(t, "{\"title\":\"x\"}", buf)
	assert.True(t, src.closed)

	events := sink.waitClosed(t)
	assert.Equal(t, []EventType{EventStart, EventData, EventData, EventData, EventDone}, types(events))
	assert.Equal(t, "rec-1", events[0].RecordID)
	assert.Equal(t, "tle\":", events[2].Fragment)
	assert.Equal(t, 1, sink.closeCnt)
}

func TestRun_SinkDisconnectDoesNotStopAccumulation(t *testing.T) {
	sink := newRecordingSink()
	sink.failFrom = 3 // start 与第一个 data 成功，之后断开
	src := &chunkSource{chunks: []string{"a", "b", "c", "d"}}

	buf, err := Run(context.Background(), "rec-1", src, sink)
	require.NoError(t, err)
	assert.Equal(t, "abcd", buf)

	events := sink.waitClosed(t)
	assert.Equal(t, []EventType{EventStart, EventData}, types(events))
}

func TestRun_SlowSinkDoesNotBlockAccumulation(t *testing.T) {
	sink := newRecordingSink()
	sink.block = make(chan struct{})
	src := &chunkSource{chunks: []string{"a", "b", "c"}}

	done := make(chan string, 1)
	go func() {
		buf, _ := Run(context.Background(), "rec-1", src, sink)
		done <- buf
	}()

	select {
	case buf := <-done:
		assert.Equal(t, "abc", buf)
	case <-time.After(2 * time.Second):
		t.Fatal("accumulation waited on the sink")
	}

	close(sink.block)
	events := sink.waitClosed(t)
	assert.Equal(t, []EventType{EventStart, EventData, EventData, EventData, EventDone}, types(events))
}

func TestRun_SourceErrorEmitsErrorEvent(t *testing.T) {
	sink := newRecordingSink()
	src := &chunkSource{chunks: []string{"partial"}, err: errors.New("upstream reset")}

	buf, err := Run(context.Background(), "rec-1", src, sink)
	require.Error(t, err)
	assert.Equal(t, "partial", buf)

	events := sink.waitClosed(t)
	assert.Equal(t, []EventType{EventStart, EventData, EventError}, types(events))
	assert.Equal(t, "upstream reset", events[2].Message)
}

func TestFail(t *testing.T) {
	sink := newRecordingSink()
	Fail(context.Background(), "rec-1", sink, errors.New("cannot open stream"))

	events := sink.waitClosed(t)
	assert.Equal(t, []EventType{EventStart, EventError}, types(events))
	assert.Equal(t, "cannot open stream", events[1].Message)
}
