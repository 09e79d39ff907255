// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// EdgeRepository 关系边仓储接口
type EdgeRepository interface {
	// Upsert 插入或更新边，(src, dst, kind) 唯一
	Upsert(ctx context.Context, edge *entity.Edge) error

	// Get 获取指定边
	Get(ctx context.Context, srcID, dstID string, kind entity.EdgeKind) (*entity.Edge, error)

	// NeighborIDs 获取对象的一跳邻居 ID（所有边类型去重）
	NeighborIDs(ctx context.Context, objectID string) ([]string, error)

	// NeighborIDsBatch 批量获取一跳邻居，返回 objectID -> 邻居集合
	NeighborIDsBatch(ctx context.Context, objectIDs []string) (map[string][]string, error)

	// Degree 获取对象度数
	Degree(ctx context.Context, objectID string) (int, error)

	// ListBySrc 列出以对象为端点的全部边
	ListBySrc(ctx context.Context, objectID string) ([]*entity.Edge, error)

	// RecentEdges 获取窗口内更新过的边，用于束相分析
	RecentEdges(ctx context.Context, since time.Time, limit int) ([]*entity.Edge, error)

	// DeleteByObject 删除对象的全部边（墓碑清理）
	DeleteByObject(ctx context.Context, objectID string) error
}
