// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// WeightRepository 权重档案仓储实现
type WeightRepository struct {
	client *Client
}

// NewWeightRepository 创建权重档案仓储
func NewWeightRepository(client *Client) *WeightRepository {
	return &WeightRepository{client: client}
}

// Create 插入新版本档案，版本号必须递增。
// UNIQUE(mode, version) 拦截并发写入同一版本。
func (r *WeightRepository) Create(ctx context.Context, profile *entity.WeightProfile) error {
	ctx, span := tracer.Start(ctx, "postgres.WeightRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(profile).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create weight profile: %w", err)
	}
	return nil
}

// Latest 获取某模式最新版本档案
func (r *WeightRepository) Latest(ctx context.Context, mode string) (*entity.WeightProfile, error) {
	ctx, span := tracer.Start(ctx, "postgres.WeightRepository.Latest")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var profile entity.WeightProfile
	if err := db.Where("mode = ?", mode).
		Order("version DESC").
		First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get latest weight profile: %w", err)
	}
	return &profile, nil
}

// GetByVersion 获取某模式指定版本档案
func (r *WeightRepository) GetByVersion(ctx context.Context, mode string, version int) (*entity.WeightProfile, error) {
	ctx, span := tracer.Start(ctx, "postgres.WeightRepository.GetByVersion")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var profile entity.WeightProfile
	if err := db.First(&profile, "mode = ? AND version = ?", mode, version).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get weight profile: %w", err)
	}
	return &profile, nil
}

// ListVersions 列出某模式全部版本，按版本号倒序
func (r *WeightRepository) ListVersions(ctx context.Context, mode string) ([]*entity.WeightProfile, error) {
	ctx, span := tracer.Start(ctx, "postgres.WeightRepository.ListVersions")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var profiles []*entity.WeightProfile
	if err := db.Where("mode = ?", mode).
		Order("version DESC").
		Find(&profiles).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list weight profiles: %w", err)
	}
	return profiles, nil
}
