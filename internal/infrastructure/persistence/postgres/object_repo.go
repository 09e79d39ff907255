// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
)

// ObjectRepository 证据对象仓储实现
type ObjectRepository struct {
	client *Client
}

// NewObjectRepository 创建证据对象仓储
func NewObjectRepository(client *Client) *ObjectRepository {
	return &ObjectRepository{client: client}
}

// Create 创建对象
func (r *ObjectRepository) Create(ctx context.Context, obj *entity.Object) error {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(obj).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create object: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取对象
func (r *ObjectRepository) GetByID(ctx context.Context, id string) (*entity.Object, error) {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var obj entity.Object
	if err := db.First(&obj, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &obj, nil
}

// GetByIDs 批量获取对象
func (r *ObjectRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Object, error) {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var objects []*entity.Object
	if err := db.Where("id IN ?", ids).Find(&objects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get objects: %w", err)
	}
	return objects, nil
}

// Update 更新对象
func (r *ObjectRepository) Update(ctx context.Context, obj *entity.Object) error {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(obj).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update object: %w", err)
	}
	return nil
}

// List 按过滤条件分页列出对象
func (r *ObjectRepository) List(ctx context.Context, filter *repository.ObjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Object], error) {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Object{})

	// 应用过滤条件
	if filter != nil {
		if filter.ObjectType != "" {
			query = query.Where("object_type = ?", filter.ObjectType)
		}
		if filter.SourceID != "" {
			query = query.Where("source_id = ?", filter.SourceID)
		}
		if filter.Modality != "" {
			query = query.Where("modality = ?", filter.Modality)
		}
		if len(filter.Tags) > 0 {
			query = query.Where("tags && ?", pq.Array(filter.Tags))
		}
		if filter.Tombstoned != nil {
			query = query.Where("tombstoned = ?", *filter.Tombstoned)
		}
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count objects: %w", err)
	}

	// 获取列表
	var objects []*entity.Object
	if err := query.Order("published_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&objects).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	return repository.NewPagedResult(objects, total, pagination), nil
}

// SetEmbeddingPending 更新对象嵌入状态
func (r *ObjectRepository) SetEmbeddingPending(ctx context.Context, id string, pending bool) error {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.SetEmbeddingPending")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Object{}).Where("id = ?", id).
		Update("embedding_pending", pending).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set embedding pending: %w", err)
	}
	return nil
}

// SetNeedsReview 标记对象需要人工复核
func (r *ObjectRepository) SetNeedsReview(ctx context.Context, id string, needs bool) error {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.SetNeedsReview")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Object{}).Where("id = ?", id).
		Update("needs_review", needs).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set needs review: %w", err)
	}
	return nil
}

// Tombstone 软删除对象
func (r *ObjectRepository) Tombstone(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ObjectRepository.Tombstone")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Object{}).Where("id = ?", id).
		Update("tombstoned", true).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to tombstone object: %w", err)
	}
	return nil
}
