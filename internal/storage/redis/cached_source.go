package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"Web3-Scaffold/internal/deployments"
	xerrors "Web3-Scaffold/internal/errors"
	"Web3-Scaffold/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Cmdable is the subset of go-redis commands the cache needs.
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedSource is a read-through cache in front of another source. Redis
// failures degrade to the underlying source instead of failing the lookup.
type CachedSource struct {
	client Cmdable
	next   deployments.Source
	prefix string
	ttl    time.Duration
}

// NewCachedSource wraps next. A non-positive ttl keeps entries until they
// are invalidated.
func NewCachedSource(client Cmdable, next deployments.Source, prefix string, ttl time.Duration) *CachedSource {
	if prefix == "" {
		prefix = "scaffold:deployments"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedSource{client: client, next: next, prefix: prefix, ttl: ttl}
}

// Lookup implements deployments.Source.
func (c *CachedSource) Lookup(ctx context.Context, network, contract string) (deployments.Record, error) {
	key := c.key(network, contract)
	log := logger.Named("deployments-cache")

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var rec deployments.Record
		if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil && rec.Validate() == nil {
			return rec, nil
		}
		log.Warn("丢弃无法解析的部署缓存", "key", key)
	case IsMiss(err):
	default:
		log.Warn("读取部署缓存失败，回源查询", "key", key, "error", err)
	}

	rec, err := c.next.Lookup(ctx, network, contract)
	if err != nil {
		return deployments.Record{}, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return rec, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn("写入部署缓存失败", "key", key, "error", err)
	}
	return rec, nil
}

// Invalidate drops the cached record for the pair.
func (c *CachedSource) Invalidate(ctx context.Context, network, contract string) error {
	if err := c.client.Del(ctx, c.key(network, contract)).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "删除部署缓存失败")
	}
	return nil
}

func (c *CachedSource) key(network, contract string) string {
	return strings.Join([]string{c.prefix, network, contract}, ":")
}

var (
	_ deployments.Source      = (*CachedSource)(nil)
	_ deployments.Invalidator = (*CachedSource)(nil)
)
