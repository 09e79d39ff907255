// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// SourceRepository 来源仓储实现
type SourceRepository struct {
	client *Client
}

// NewSourceRepository 创建来源仓储
func NewSourceRepository(client *Client) *SourceRepository {
	return &SourceRepository{client: client}
}

// Create 创建来源
func (r *SourceRepository) Create(ctx context.Context, src *entity.Source) error {
	ctx, span := tracer.Start(ctx, "postgres.SourceRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(src).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取来源
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*entity.Source, error) {
	ctx, span := tracer.Start(ctx, "postgres.SourceRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var src entity.Source
	if err := db.First(&src, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &src, nil
}

// List 列出全部来源
func (r *SourceRepository) List(ctx context.Context) ([]*entity.Source, error) {
	ctx, span := tracer.Start(ctx, "postgres.SourceRepository.List")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var sources []*entity.Source
	if err := db.Order("created_at DESC").Find(&sources).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}
