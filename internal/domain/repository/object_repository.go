// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// ObjectFilter 对象过滤条件
type ObjectFilter struct {
	ObjectType entity.ObjectType
	SourceID   string
	Modality   string
	Tags       []string
	Tombstoned *bool
}

// ObjectRepository 证据对象仓储接口
type ObjectRepository interface {
	// Create 创建对象
	Create(ctx context.Context, obj *entity.Object) error

	// GetByID 根据 ID 获取对象
	GetByID(ctx context.Context, id string) (*entity.Object, error)

	// GetByIDs 批量获取对象
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Object, error)

	// Update 更新对象
	Update(ctx context.Context, obj *entity.Object) error

	// List 按过滤条件分页列出对象
	List(ctx context.Context, filter *ObjectFilter, pagination Pagination) (*PagedResult[*entity.Object], error)

	// SetEmbeddingPending 更新对象嵌入状态
	SetEmbeddingPending(ctx context.Context, id string, pending bool) error

	// SetNeedsReview 标记对象需要人工复核
	SetNeedsReview(ctx context.Context, id string, needs bool) error

	// Tombstone 软删除对象
	Tombstone(ctx context.Context, id string) error
}

// SourceRepository 来源仓储接口
type SourceRepository interface {
	// Create 创建来源
	Create(ctx context.Context, src *entity.Source) error

	// GetByID 根据 ID 获取来源
	GetByID(ctx context.Context, id string) (*entity.Source, error)

	// List 列出全部来源
	List(ctx context.Context) ([]*entity.Source, error)
}
