// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// EdgeRepository 关系边仓储实现
type EdgeRepository struct {
	client *Client
}

// NewEdgeRepository 创建关系边仓储
func NewEdgeRepository(client *Client) *EdgeRepository {
	return &EdgeRepository{client: client}
}

// Upsert 插入或更新边，(src, dst, kind) 唯一。
// 冲突时覆盖 weight/features 并回填已有行的 id 与时间戳。
func (r *EdgeRepository) Upsert(ctx context.Context, edge *entity.Edge) error {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "src_id"}, {Name: "dst_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"weight", "features", "updated_at"}),
		},
		clause.Returning{},
	).Create(edge).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// Get 获取指定边
func (r *EdgeRepository) Get(ctx context.Context, srcID, dstID string, kind entity.EdgeKind) (*entity.Edge, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var edge entity.Edge
	if err := db.First(&edge, "src_id = ? AND dst_id = ? AND kind = ?", srcID, dstID, kind).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get edge: %w", err)
	}
	return &edge, nil
}

// NeighborIDs 获取对象的一跳邻居 ID（所有边类型去重）
func (r *EdgeRepository) NeighborIDs(ctx context.Context, objectID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.NeighborIDs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var ids []string
	if err := db.Raw(`
		SELECT DISTINCT other FROM (
			SELECT dst_id AS other FROM edges WHERE src_id = ?
			UNION
			SELECT src_id AS other FROM edges WHERE dst_id = ?
		) n
	`, objectID, objectID).Scan(&ids).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	return ids, nil
}

// NeighborIDsBatch 批量获取一跳邻居，返回 objectID -> 邻居集合
func (r *EdgeRepository) NeighborIDsBatch(ctx context.Context, objectIDs []string) (map[string][]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.NeighborIDsBatch")
	defer span.End()

	if len(objectIDs) == 0 {
		return map[string][]string{}, nil
	}

	db := getDB(ctx, r.client.db)
	var pairs []struct {
		Self  string
		Other string
	}
	if err := db.Raw(`
		SELECT self, other FROM (
			SELECT src_id AS self, dst_id AS other FROM edges WHERE src_id = ANY(?)
			UNION
			SELECT dst_id AS self, src_id AS other FROM edges WHERE dst_id = ANY(?)
		) n
	`, pq.Array(objectIDs), pq.Array(objectIDs)).Scan(&pairs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query neighbors batch: %w", err)
	}

	result := make(map[string][]string, len(objectIDs))
	for _, p := range pairs {
		result[p.Self] = append(result[p.Self], p.Other)
	}
	return result, nil
}

// Degree 获取对象度数
func (r *EdgeRepository) Degree(ctx context.Context, objectID string) (int, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.Degree")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var degree int
	if err := db.Raw(`
		SELECT COUNT(DISTINCT other) FROM (
			SELECT dst_id AS other FROM edges WHERE src_id = ?
			UNION
			SELECT src_id AS other FROM edges WHERE dst_id = ?
		) n
	`, objectID, objectID).Scan(&degree).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to query degree: %w", err)
	}
	return degree, nil
}

// ListBySrc 列出以对象为端点的全部边
func (r *EdgeRepository) ListBySrc(ctx context.Context, objectID string) ([]*entity.Edge, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.ListBySrc")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var edges []*entity.Edge
	if err := db.Where("src_id = ? OR dst_id = ?", objectID, objectID).
		Order("weight DESC").
		Find(&edges).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}
	return edges, nil
}

// RecentEdges 获取窗口内更新过的边，用于束相分析
func (r *EdgeRepository) RecentEdges(ctx context.Context, since time.Time, limit int) ([]*entity.Edge, error) {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.RecentEdges")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var edges []*entity.Edge
	if err := db.Where("updated_at >= ?", since).
		Order("updated_at DESC").
		Limit(limit).
		Find(&edges).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query recent edges: %w", err)
	}
	return edges, nil
}

// DeleteByObject 删除对象的全部边（墓碑清理）
func (r *EdgeRepository) DeleteByObject(ctx context.Context, objectID string) error {
	ctx, span := tracer.Start(ctx, "postgres.EdgeRepository.DeleteByObject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("src_id = ? OR dst_id = ?", objectID, objectID).
		Delete(&entity.Edge{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete edges: %w", err)
	}
	return nil
}
