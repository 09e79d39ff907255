// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
)

// InsightRepository 洞见仓储实现
type InsightRepository struct {
	client *Client
}

// NewInsightRepository 创建洞见仓储
func NewInsightRepository(client *Client) *InsightRepository {
	return &InsightRepository{client: client}
}

// Create 创建洞见
func (r *InsightRepository) Create(ctx context.Context, insight *entity.Insight) error {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(insight).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取洞见
func (r *InsightRepository) GetByID(ctx context.Context, id string) (*entity.Insight, error) {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var insight entity.Insight
	if err := db.First(&insight, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return &insight, nil
}

// UpdateStatus 更新洞见状态
func (r *InsightRepository) UpdateStatus(ctx context.Context, id string, status entity.InsightStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.Insight{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		span.RecordError(result.Error)
		return fmt.Errorf("failed to update insight status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 按过滤条件分页列出洞见
func (r *InsightRepository) List(ctx context.Context, filter *repository.InsightFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Insight], error) {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Insight{})

	// 应用过滤条件
	if filter != nil {
		if filter.Type != "" {
			query = query.Where("insight_type = ?", filter.Type)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.ClusterID != "" {
			query = query.Where("cluster_id = ?", filter.ClusterID)
		}
		if filter.Mode != "" {
			query = query.Where("mode = ?", filter.Mode)
		}
		if filter.MinScore > 0 {
			query = query.Where("score >= ?", filter.MinScore)
		}
		if !filter.Since.IsZero() {
			query = query.Where("emitted_at >= ?", filter.Since)
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count insights: %w", err)
	}

	// 获取列表
	var insights []*entity.Insight
	if err := query.Order("emitted_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&insights).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}

	return repository.NewPagedResult(insights, total, pagination), nil
}

// LatestInCooldown 获取冷却窗口内同集群同类型最近一条未关闭洞见
func (r *InsightRepository) LatestInCooldown(ctx context.Context, clusterID string, typ entity.InsightType, window time.Duration) (*entity.Insight, error) {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.LatestInCooldown")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var insight entity.Insight
	err := db.Where("cluster_id = ? AND insight_type = ?", clusterID, typ).
		Where("status NOT IN ?", []entity.InsightStatus{entity.InsightStatusDismissed, entity.InsightStatusMuted}).
		Where("emitted_at >= ?", time.Now().Add(-window)).
		Order("emitted_at DESC").
		First(&insight).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get insight in cooldown: %w", err)
	}
	return &insight, nil
}

// CountBySourceKeySince 统计窗口内某规范序来源对的洞见数，用于来源级冷却。
// sourceKey 必须是写入时使用的同一规范形式（见 fusion.SourceKey）。
func (r *InsightRepository) CountBySourceKeySince(ctx context.Context, sourceKey string, since time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.InsightRepository.CountBySourceKeySince")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Insight{}).
		Where("emitted_at >= ? AND source_key = ?", since, sourceKey).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count insights by source: %w", err)
	}
	return int(count), nil
}
