package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter は複数インスタンスで上限を共有する固定ウィンドウのリミッターです。
// 最初のINCRでEXPIREを設定し、キーの寿命をウィンドウとして扱います。
type RedisLimiter struct {
	rdb       *redis.Client
	limit     int
	interval  time.Duration
	namespace string
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter は新しいRedisLimiterを生成します。namespaceが空の場合は "ratelimit" を使用します。
func NewRedisLimiter(rdb *redis.Client, limit int, interval time.Duration, namespace string) *RedisLimiter {
	if namespace == "" {
		namespace = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, interval: interval, namespace: namespace}
}

// Allow はkeyのカウンタをINCRし、上限内かどうかを返します。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.key(key)

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, k, l.interval).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", k, err)
		}
		return newResult(l.limit, count, l.interval), nil
	}

	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ttl %s: %w", k, err)
	}
	// EXPIRE前にプロセスが落ちた場合などTTLが無いキーは、ここで期限を付け直す
	if ttl < 0 {
		if err := l.rdb.Expire(ctx, k, l.interval).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", k, err)
		}
		ttl = l.interval
	}
	return newResult(l.limit, count, ttl), nil
}

func (l *RedisLimiter) key(client string) string {
	return fmt.Sprintf("%s:%s", l.namespace, safe(client))
}
