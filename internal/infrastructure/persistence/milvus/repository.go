// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/pkg/metrics"
)

// Repository 向量检索仓储
type Repository struct {
	client *Client
}

// NewRepository 创建向量检索仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 近邻检索参数
type SearchParams struct {
	QueryVector []float32
	TopK        int
	// ExcludeID 锚点对象自身 ID，从结果中排除
	ExcludeID string
	// ObjectType 可选的类型过滤
	ObjectType string
}

// SearchResult 近邻检索结果
type SearchResult struct {
	ID          string
	Score       float32
	ObjectType  string
	Modality    string
	SourceID    string
	PublishedAt int64
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// SearchNeighbors 检索近邻对象。墓碑对象和锚点自身从结果中排除。
func (r *Repository) SearchNeighbors(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchNeighbors",
		trace.WithAttributes(
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionEvidenceObjects)

	start := time.Now()
	defer func() {
		metrics.VectorSearchDuration.WithLabelValues(collName).Observe(time.Since(start).Seconds())
	}()

	// 构建过滤表达式
	filter := `tombstoned == false`
	if params.ExcludeID != "" {
		filter += fmt.Sprintf(` && id != "%s"`, params.ExcludeID)
	}
	if params.ObjectType != "" {
		filter += fmt.Sprintf(` && object_type == "%s"`, params.ObjectType)
	}

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		filter,
		[]string{"id", "object_type", "modality", "source_id", "published_at"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		metrics.VectorSearchTotal.WithLabelValues(collName, "error").Inc()
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.VectorSearchTotal.WithLabelValues(collName, "ok").Inc()

	// 解析结果
	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if typeCol, ok := result.Fields.GetColumn("object_type").(*entity.ColumnVarChar); ok {
				sr.ObjectType = typeCol.Data()[i]
			}
			if modCol, ok := result.Fields.GetColumn("modality").(*entity.ColumnVarChar); ok {
				sr.Modality = modCol.Data()[i]
			}
			if srcCol, ok := result.Fields.GetColumn("source_id").(*entity.ColumnVarChar); ok {
				sr.SourceID = srcCol.Data()[i]
			}
			if timeCol, ok := result.Fields.GetColumn("published_at").(*entity.ColumnInt64); ok {
				sr.PublishedAt = timeCol.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// UpsertVector 写入对象向量。已存在时先删后插，Milvus 不支持原地覆盖。
func (r *Repository) UpsertVector(ctx context.Context, vec *EvidenceVector) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.UpsertVector",
		trace.WithAttributes(attribute.String("object_id", vec.ID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionEvidenceObjects)

	if err := r.client.milvus.Delete(ctx, collName, "", fmt.Sprintf(`id == "%s"`, vec.ID)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete stale vector: %w", err)
	}

	idCol := entity.NewColumnVarChar("id", []string{vec.ID})
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, [][]float32{vec.Vector})
	typeCol := entity.NewColumnVarChar("object_type", []string{vec.ObjectType})
	modCol := entity.NewColumnVarChar("modality", []string{vec.Modality})
	srcCol := entity.NewColumnVarChar("source_id", []string{vec.SourceID})
	tombCol := entity.NewColumnBool("tombstoned", []bool{vec.Tombstoned})
	timeCol := entity.NewColumnInt64("published_at", []int64{vec.PublishedAt})

	_, err := r.client.milvus.Insert(ctx, collName, "",
		idCol, vectorCol, typeCol, modCol, srcCol, tombCol, timeCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert vector: %w", err)
	}

	return nil
}

// MarkTombstoned 墓碑化对象向量，先删后插保持过滤语义
func (r *Repository) MarkTombstoned(ctx context.Context, objectID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.MarkTombstoned",
		trace.WithAttributes(attribute.String("object_id", objectID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionEvidenceObjects)

	// 墓碑对象不再参与检索，直接删除向量即可
	if err := r.client.milvus.Delete(ctx, collName, "", fmt.Sprintf(`id == "%s"`, objectID)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to tombstone vector: %w", err)
	}
	return nil
}

// EnsureEvidenceCollection 确保 evidence_objects 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureEvidenceCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionEvidenceObjects)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, EvidenceObjectsSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionEvidenceObjects)
	}

	return r.client.LoadCollection(ctx, CollectionEvidenceObjects)
}
