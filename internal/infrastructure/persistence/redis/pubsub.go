// Package redis 提供 Redis 发布订阅实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChannelInsightEvents 洞见发射事件通道
const ChannelInsightEvents = "insights:events"

// InsightEventBus 洞见事件的进程间广播，支撑多副本 SSE 推送
type InsightEventBus struct {
	client *Client
}

// NewInsightEventBus 创建洞见事件总线
func NewInsightEventBus(client *Client) *InsightEventBus {
	return &InsightEventBus{client: client}
}

// Publish 广播洞见事件
func (b *InsightEventBus) Publish(ctx context.Context, event interface{}) error {
	ctx, span := tracer.Start(ctx, "pubsub.Publish",
		trace.WithAttributes(attribute.String("channel", ChannelInsightEvents)))
	defer span.End()

	payload, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.rdb.Publish(ctx, ChannelInsightEvents, payload).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe 订阅洞见事件，调用方负责 Close
func (b *InsightEventBus) Subscribe(ctx context.Context) *redis.PubSub {
	return b.client.rdb.Subscribe(ctx, ChannelInsightEvents)
}
