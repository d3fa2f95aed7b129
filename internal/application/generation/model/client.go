// Package model 抽象外部生成模型，并提供确定性的本地回退生成器
package model

import (
	"context"
	"errors"
	"io"
	"strings"

	"therapeutic-story-api/internal/application/generation/prompt"
)

// FragmentReader 增量输出，Recv 在结束时返回 io.EOF；有限且不可重放
type FragmentReader interface {
	Recv() (string, error)
	Close()
}

// Client 生成模型
// 同一输入下 GenerateStream 的分片按序拼接等于 GenerateOnce 的结果
type Client interface {
	Name() string
	GenerateOnce(ctx context.Context, p prompt.Prompts) (string, error)
	GenerateStream(ctx context.Context, p prompt.Prompts) (FragmentReader, error)
}

// ReadAll 读取全部分片并关闭 reader
func ReadAll(r FragmentReader) (string, error) {
	defer r.Close()

	var sb strings.Builder
	for {
		chunk, err := r.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
}

// sliceReader 基于内存分片的 reader
type sliceReader struct {
	chunks []string
	pos    int
}

// NewSliceReader 将分片包装为 FragmentReader
func NewSliceReader(chunks []string) FragmentReader {
	return &sliceReader{chunks: chunks}
}

func (r *sliceReader) Recv() (string, error) {
	if r.pos >= len(r.chunks) {
		return "", io.EOF
	}
	c := r.chunks[r.pos]
	r.pos++
	return c, nil
}

func (r *sliceReader) Close() {
	r.pos = len(r.chunks)
}

// primedReader 先返回已预读的首个分片，再委托给底层 reader
type primedReader struct {
	first  string
	primed bool
	next   FragmentReader
	cancel context.CancelFunc
}

func (r *primedReader) Recv() (string, error) {
	if !r.primed {
		r.primed = true
		return r.first, nil
	}
	return r.next.Recv()
}

func (r *primedReader) Close() {
	r.next.Close()
	if r.cancel != nil {
		r.cancel()
	}
}
