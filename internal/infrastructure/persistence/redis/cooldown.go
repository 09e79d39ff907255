// Package redis 提供冷却窗口快速判定
package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CooldownGuard 冷却窗口守卫。
// Postgres 中的洞见记录是权威事实，这里的键只是热路径上的快速否决，
// 键丢失（如 Redis 重启）时退回数据库判定。
type CooldownGuard struct {
	client *Client
}

// NewCooldownGuard 创建冷却守卫
func NewCooldownGuard(client *Client) *CooldownGuard {
	return &CooldownGuard{client: client}
}

// Mark 记录一次发射，窗口内同键的 Active 返回 true
func (g *CooldownGuard) Mark(ctx context.Context, clusterID, insightType string, window time.Duration) error {
	ctx, span := tracer.Start(ctx, "cooldown.Mark",
		trace.WithAttributes(attribute.String("cooldown.cluster_id", clusterID)))
	defer span.End()

	key := cooldownKey(clusterID, insightType)
	if err := g.client.rdb.Set(ctx, key, time.Now().Unix(), window).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark cooldown: %w", err)
	}
	return nil
}

// Active 判断冷却窗口是否生效
func (g *CooldownGuard) Active(ctx context.Context, clusterID, insightType string) (bool, error) {
	ctx, span := tracer.Start(ctx, "cooldown.Active",
		trace.WithAttributes(attribute.String("cooldown.cluster_id", clusterID)))
	defer span.End()

	n, err := g.client.rdb.Exists(ctx, cooldownKey(clusterID, insightType)).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check cooldown: %w", err)
	}
	return n > 0, nil
}

// Clear 清除冷却键（洞见被 dismissed 后允许重新发射）
func (g *CooldownGuard) Clear(ctx context.Context, clusterID, insightType string) error {
	return g.client.rdb.Del(ctx, cooldownKey(clusterID, insightType)).Err()
}

func cooldownKey(clusterID, insightType string) string {
	return fmt.Sprintf("cooldown:%s:%s", clusterID, insightType)
}
