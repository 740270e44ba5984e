package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBacking 以 key 前缀在 Redis 中保存缓存值
type RedisBacking struct {
	client *redis.Client
	prefix string
}

func NewRedisBacking(client *redis.Client, prefix string) *RedisBacking {
	return &RedisBacking{client: client, prefix: prefix}
}

// NewRedisClient 连接 Redis；ping 失败只告警，与存储层保持一致
func NewRedisClient(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("cache: redis ping failed", "addr", addr, "error", err)
	}
	return rdb
}

func (r *RedisBacking) Get(ctx context.Context, key string) ([]byte, bool) {
	bs, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("cache: redis get", "key", key, "error", err)
		}
		return nil, false
	}
	return bs, true
}

func (r *RedisBacking) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		slog.Warn("cache: redis set", "key", key, "error", err)
	}
}

// Clear 删除前缀下所有 key；每个订阅源一个 key，数量少，直接 SCAN
func (r *RedisBacking) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache: redis scan", "prefix", r.prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache: redis del", "prefix", r.prefix, "error", err)
	}
}
