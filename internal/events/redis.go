package events

import (
	"context"
	"encoding/json"
	"fmt"

	xerrors "Web3-Scaffold/internal/errors"

	"github.com/redis/go-redis/v9"
)

// ListPusher is the subset of go-redis used by RedisPublisher.
type ListPusher interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisPublisher 使用 Redis list 保存事件，消费端通过 BRPOP 读取。
type RedisPublisher struct {
	client ListPusher
	key    string
	maxLen int64
	closer func() error
}

// NewRedisPublisher 创建 Redis 发布器。maxLen 大于 0 时截断列表长度。
func NewRedisPublisher(client ListPusher, key string, maxLen int64) *RedisPublisher {
	if key == "" {
		key = "scaffold:events:transfer"
	}
	p := &RedisPublisher{client: client, key: key, maxLen: maxLen}
	if c, ok := client.(interface{ Close() error }); ok {
		p.closer = c.Close
	}
	return p
}

// Publish 将消息以 JSON 形式 LPUSH 到列表头部。
func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "序列化事件失败")
	}
	if err := p.client.LPush(ctx, p.key, payload).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, fmt.Sprintf("Redis 发布事件 %s 失败", msg.ID))
	}
	if p.maxLen > 0 {
		if err := p.client.LTrim(ctx, p.key, 0, p.maxLen-1).Err(); err != nil {
			return xerrors.Wrap(xerrors.CodeQueueFailure, err, "Redis 截断事件列表失败")
		}
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.closer == nil {
		return nil
	}
	return p.closer()
}
