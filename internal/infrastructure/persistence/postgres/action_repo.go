// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// ActionRepository 用户反馈仓储实现（仅追加）
type ActionRepository struct {
	client *Client
}

// NewActionRepository 创建用户反馈仓储
func NewActionRepository(client *Client) *ActionRepository {
	return &ActionRepository{client: client}
}

// Create 记录一次用户反馈
func (r *ActionRepository) Create(ctx context.Context, action *entity.UserAction) error {
	ctx, span := tracer.Start(ctx, "postgres.ActionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(action).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create user action: %w", err)
	}
	return nil
}

// ListByInsight 列出洞见的全部反馈
func (r *ActionRepository) ListByInsight(ctx context.Context, insightID string) ([]*entity.UserAction, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActionRepository.ListByInsight")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var actions []*entity.UserAction
	if err := db.Where("insight_id = ?", insightID).
		Order("created_at DESC").
		Find(&actions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list user actions: %w", err)
	}
	return actions, nil
}

// ListSince 列出某模式下窗口内的全部反馈，供调参器消费
func (r *ActionRepository) ListSince(ctx context.Context, mode string, since time.Time) ([]*entity.UserAction, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActionRepository.ListSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var actions []*entity.UserAction
	if err := db.Where("mode = ? AND created_at >= ?", mode, since).
		Order("created_at ASC").
		Find(&actions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list user actions: %w", err)
	}
	return actions, nil
}

// CountSince 统计某模式下窗口内的反馈数
func (r *ActionRepository) CountSince(ctx context.Context, mode string, since time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ActionRepository.CountSince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.UserAction{}).
		Where("mode = ? AND created_at >= ?", mode, since).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count user actions: %w", err)
	}
	return int(count), nil
}
