package events

import (
	"context"
	"sync"

	xerrors "Web3-Scaffold/internal/errors"
)

// Publisher 负责把事件消息投递到队列。
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// MemoryPublisher 使用 channel 缓存消息，主要用于测试与单机部署。
type MemoryPublisher struct {
	ch     chan Message
	mu     sync.RWMutex
	closed bool
}

// NewMemoryPublisher 创建一个内存发布器。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan Message, size)}
}

// Publish 将消息放入缓冲区，缓冲区满时阻塞直到 ctx 结束。
func (p *MemoryPublisher) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return xerrors.New(xerrors.CodeQueueFailure, "内存队列已关闭")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.ch <- msg:
		return nil
	}
}

// Messages 返回消费端 channel，Close 后会被关闭。
func (p *MemoryPublisher) Messages() <-chan Message { return p.ch }

// Close 关闭内存队列。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	return nil
}
