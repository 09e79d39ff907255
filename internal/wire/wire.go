// Package wire 提供依赖装配。
// 各层构造函数都是显式依赖注入，这里只负责按序组装。
package wire

import (
	"context"
	"fmt"

	"github.com/dmedlin87/Theoria-sub008/internal/application/feature"
	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/application/insight"
	"github.com/dmedlin87/Theoria-sub008/internal/application/object"
	"github.com/dmedlin87/Theoria-sub008/internal/application/tuner"
	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/embedding"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/messaging"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/milvus"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/postgres"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/handler"
	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/router"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	// PostgreSQL
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ObjectRepo  *postgres.ObjectRepository
	SourceRepo  *postgres.SourceRepository
	EdgeRepo    *postgres.EdgeRepository
	InsightRepo *postgres.InsightRepository
	ActionRepo  *postgres.ActionRepository
	WeightRepo  *postgres.WeightRepository

	// Redis
	RedisClient *redis.Client
	Cache       *redis.Cache
	RateLimiter *redis.RateLimiter
	ObjectLock  *redis.ObjectLock
	Cooldown    *redis.CooldownGuard
	EventBus    *redis.InsightEventBus

	// Milvus
	MilvusClient *milvus.Client
	VectorRepo   *milvus.Repository

	// 消息队列
	Producer *messaging.Producer
}

// NewDataLayer 装配数据层
func NewDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, error) {
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, fmt.Errorf("failed to init milvus: %w", err)
	}

	return &DataLayer{
		PgClient:    pgClient,
		TxManager:   postgres.NewTxManager(pgClient),
		ObjectRepo:  postgres.NewObjectRepository(pgClient),
		SourceRepo:  postgres.NewSourceRepository(pgClient),
		EdgeRepo:    postgres.NewEdgeRepository(pgClient),
		InsightRepo: postgres.NewInsightRepository(pgClient),
		ActionRepo:  postgres.NewActionRepository(pgClient),
		WeightRepo:  postgres.NewWeightRepository(pgClient),

		RedisClient: redisClient,
		Cache:       redis.NewCache(redisClient),
		RateLimiter: redis.NewRateLimiter(redisClient),
		ObjectLock:  redis.NewObjectLock(redisClient, cfg.Engine.LockTTL),
		Cooldown:    redis.NewCooldownGuard(redisClient),
		EventBus:    redis.NewInsightEventBus(redisClient),

		MilvusClient: milvusClient,
		VectorRepo:   milvus.NewRepository(milvusClient),

		Producer: messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen)),
	}, nil
}

// Close 释放数据层连接
func (d *DataLayer) Close(ctx context.Context) {
	if d.PgClient != nil {
		_ = d.PgClient.Close()
	}
	if d.RedisClient != nil {
		_ = d.RedisClient.Close()
	}
	if d.MilvusClient != nil {
		_ = d.MilvusClient.Close()
	}
}

// AppLayer 应用层依赖容器
type AppLayer struct {
	GraphService  *graph.Service
	TermStats     *feature.TermStats
	Features      *feature.Computer
	Embedder      *embedding.Client
	ObjectService *object.Service
	UpsertService *insight.UpsertService
	QueryService  *insight.QueryService
	Bundler       *insight.Bundler
	Tuner         *tuner.Tuner
}

// NewAppLayer 装配应用层
func NewAppLayer(cfg *config.Config, data *DataLayer) *AppLayer {
	graphSvc := graph.NewService(data.EdgeRepo)
	termStats := feature.NewTermStats(data.RedisClient)
	features := feature.NewComputer(termStats, &cfg.Engine)
	embedder := embedding.NewClient(&cfg.Embedding)

	upsertSvc := insight.NewUpsertService(
		data.ObjectRepo,
		data.EdgeRepo,
		data.InsightRepo,
		data.WeightRepo,
		data.TxManager,
		data.VectorRepo,
		embedder,
		graphSvc,
		features,
		termStats,
		data.ObjectLock,
		data.Cooldown,
		data.EventBus,
		data.Cache,
		&cfg.Engine,
	)

	querySvc := insight.NewQueryService(
		data.InsightRepo,
		data.ActionRepo,
		data.TxManager,
		data.Cache,
		data.Cooldown,
	)

	objectSvc := object.NewService(
		data.ObjectRepo,
		data.SourceRepo,
		data.VectorRepo,
		data.Producer,
		data.Cache,
	)

	bundler := insight.NewBundler(
		data.ObjectRepo,
		data.EdgeRepo,
		data.InsightRepo,
		data.TxManager,
		graphSvc,
		data.Cooldown,
		data.EventBus,
		&cfg.Engine,
	)

	feedbackTuner := tuner.New(
		data.ActionRepo,
		data.InsightRepo,
		data.WeightRepo,
		&cfg.Engine,
	)

	return &AppLayer{
		GraphService:  graphSvc,
		TermStats:     termStats,
		Features:      features,
		Embedder:      embedder,
		ObjectService: objectSvc,
		UpsertService: upsertSvc,
		QueryService:  querySvc,
		Bundler:       bundler,
		Tuner:         feedbackTuner,
	}
}

// NewRouter 装配 HTTP 路由
func NewRouter(cfg *config.Config, data *DataLayer, app *AppLayer) *router.Router {
	healthHandler := handler.NewHealthHandler(data.PgClient, data.RedisClient, data.MilvusClient)
	insightHandler := handler.NewInsightHandler(app.QueryService, app.UpsertService, data.EventBus)
	objectHandler := handler.NewObjectHandler(app.ObjectService)
	weightHandler := handler.NewWeightHandler(app.Tuner)

	return router.New(cfg, healthHandler, insightHandler, objectHandler, weightHandler, data.RateLimiter)
}
