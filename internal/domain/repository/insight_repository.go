// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// InsightFilter 洞见过滤条件
type InsightFilter struct {
	Type      entity.InsightType
	Status    entity.InsightStatus
	ClusterID string
	Mode      string
	MinScore  float64
	Since     time.Time
}

// InsightRepository 洞见仓储接口
type InsightRepository interface {
	// Create 创建洞见
	Create(ctx context.Context, insight *entity.Insight) error

	// GetByID 根据 ID 获取洞见
	GetByID(ctx context.Context, id string) (*entity.Insight, error)

	// UpdateStatus 更新洞见状态
	UpdateStatus(ctx context.Context, id string, status entity.InsightStatus) error

	// List 按过滤条件分页列出洞见
	List(ctx context.Context, filter *InsightFilter, pagination Pagination) (*PagedResult[*entity.Insight], error)

	// LatestInCooldown 获取冷却窗口内同集群同类型最近一条未关闭洞见，
	// 不存在时返回 nil
	LatestInCooldown(ctx context.Context, clusterID string, typ entity.InsightType, window time.Duration) (*entity.Insight, error)

	// CountBySourceKeySince 统计窗口内某规范序来源对（见 fusion.SourceKey）的洞见数，用于来源级冷却
	CountBySourceKeySince(ctx context.Context, sourceKey string, since time.Time) (int, error)
}

// ActionRepository 用户反馈仓储接口（仅追加）
type ActionRepository interface {
	// Create 记录一次用户反馈
	Create(ctx context.Context, action *entity.UserAction) error

	// ListByInsight 列出洞见的全部反馈
	ListByInsight(ctx context.Context, insightID string) ([]*entity.UserAction, error)

	// ListSince 列出某模式下窗口内的全部反馈，供调参器消费
	ListSince(ctx context.Context, mode string, since time.Time) ([]*entity.UserAction, error)

	// CountSince 统计某模式下窗口内的反馈数
	CountSince(ctx context.Context, mode string, since time.Time) (int, error)
}
