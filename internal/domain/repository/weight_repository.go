// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// WeightRepository 权重档案仓储接口。档案按版本追加，不做原地修改。
type WeightRepository interface {
	// Create 插入新版本档案，版本号必须递增
	Create(ctx context.Context, profile *entity.WeightProfile) error

	// Latest 获取某模式最新版本档案，不存在时返回 nil
	Latest(ctx context.Context, mode string) (*entity.WeightProfile, error)

	// GetByVersion 获取某模式指定版本档案
	GetByVersion(ctx context.Context, mode string, version int) (*entity.WeightProfile, error)

	// ListVersions 列出某模式全部版本，按版本号倒序
	ListVersions(ctx context.Context, mode string) ([]*entity.WeightProfile, error)
}
