// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishObjectChanged 发布对象变更事件
func (p *Producer) PublishObjectChanged(ctx context.Context, change *ObjectChangedMessage) (string, error) {
	msg, err := NewMessage(change.ObjectID, TypeObjectChanged, change.ObjectID, change)
	if err != nil {
		return "", err
	}

	msg.SetMetadata("change_kind", change.ChangeKind)
	if change.IdempotencyKey != "" {
		msg.SetMetadata("idempotency_key", change.IdempotencyKey)
	}

	return p.Publish(ctx, StreamObjectUpsert, msg)
}

// PublishObjectTombstoned 发布对象墓碑事件
func (p *Producer) PublishObjectTombstoned(ctx context.Context, objectID string) (string, error) {
	msg, err := NewMessage(objectID, TypeObjectTombstoned, objectID, &ObjectChangedMessage{
		ObjectID:   objectID,
		ChangeKind: "tombstoned",
	})
	if err != nil {
		return "", err
	}

	return p.Publish(ctx, StreamObjectUpsert, msg)
}

// ObjectChangedMessage 对象变更消息
type ObjectChangedMessage struct {
	ObjectID string `json:"object_id"`
	// ChangeKind created/updated/embedding/tombstoned
	ChangeKind     string `json:"change_kind"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}
