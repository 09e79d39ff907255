// Package main 系统初始化：建表、建向量集合、灌默认权重档案。
// 幂等，可重复执行。
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层
	dataLayer, err := wire.NewDataLayer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer dataLayer.Close(ctx)

	// 3. 建 PostgreSQL 表结构
	fmt.Println("Applying PostgreSQL schema...")
	if err := dataLayer.PgClient.Migrate(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	// 4. 建 Milvus 向量集合与索引
	fmt.Println("Ensuring Milvus evidence collection...")
	if err := dataLayer.VectorRepo.EnsureEvidenceCollection(ctx); err != nil {
		log.Fatalf("failed to ensure milvus collection: %v", err)
	}

	// 5. 灌默认权重档案
	existing, err := dataLayer.WeightRepo.Latest(ctx, entity.DefaultMode)
	if err != nil {
		log.Fatalf("failed to check weight profile: %v", err)
	}
	if existing == nil {
		fmt.Printf("Seeding default weight profile (mode=%s)...\n", entity.DefaultMode)
		profile := entity.DefaultWeightProfile(entity.DefaultMode)
		profile.ID = uuid.NewString()
		// 配置里给了分类阈值就用配置的，否则保留默认
		if cfg.Engine.ConvergenceThreshold > 0 {
			profile.TauConv = cfg.Engine.ConvergenceThreshold
		}
		if cfg.Engine.CollisionThreshold > 0 {
			profile.TauCol = cfg.Engine.CollisionThreshold
		}
		if cfg.Engine.LeadThreshold > 0 {
			profile.TauLead = cfg.Engine.LeadThreshold
		}
		if !profile.Valid() {
			log.Fatalf("configured thresholds are invalid: conv=%.4f col=%.4f lead=%.4f",
				profile.TauConv, profile.TauCol, profile.TauLead)
		}
		if err := dataLayer.WeightRepo.Create(ctx, profile); err != nil {
			log.Fatalf("failed to seed weight profile: %v", err)
		}
	} else {
		fmt.Printf("Weight profile exists (mode=%s version=%d), skipping seed\n", existing.Mode, existing.Version)
	}

	fmt.Println("Bootstrap completed successfully.")
}
