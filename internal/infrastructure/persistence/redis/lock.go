// Package redis 提供 Redis 分布式锁实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// releaseScript 仅当持有 token 匹配时才释放锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript 仅当持有 token 匹配时才续约
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// ObjectLock 对象级 advisory lock。
// 同一对象的 upsert 不允许并发执行；持有者崩溃后靠 TTL 过期。
type ObjectLock struct {
	client *Client
	ttl    time.Duration
}

// NewObjectLock 创建对象锁
func NewObjectLock(client *Client, ttl time.Duration) *ObjectLock {
	return &ObjectLock{client: client, ttl: ttl}
}

// Acquire 尝试获取对象锁。成功时返回释放 token，锁被占用时返回 ("", false, nil)。
func (l *ObjectLock) Acquire(ctx context.Context, objectID string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "lock.Acquire",
		trace.WithAttributes(attribute.String("lock.object_id", objectID)))
	defer span.End()

	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, lockKey(objectID), token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	span.SetAttributes(attribute.Bool("lock.acquired", ok))
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release 释放对象锁。token 不匹配（锁已过期并被他人持有）时静默返回。
func (l *ObjectLock) Release(ctx context.Context, objectID, token string) error {
	ctx, span := tracer.Start(ctx, "lock.Release",
		trace.WithAttributes(attribute.String("lock.object_id", objectID)))
	defer span.End()

	if err := releaseScript.Run(ctx, l.client.rdb, []string{lockKey(objectID)}, token).Err(); err != nil && err != redis.Nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Extend 续约对象锁，仅持有者可续
func (l *ObjectLock) Extend(ctx context.Context, objectID, token string) (bool, error) {
	ctx, span := tracer.Start(ctx, "lock.Extend",
		trace.WithAttributes(attribute.String("lock.object_id", objectID)))
	defer span.End()

	res, err := extendScript.Run(ctx, l.client.rdb, []string{lockKey(objectID)}, token, l.ttl.Milliseconds()).Int()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return res == 1, nil
}

func lockKey(objectID string) string {
	return "lock:object:" + objectID
}
