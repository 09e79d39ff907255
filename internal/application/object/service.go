// Package object 证据对象的写路径：采集协作方的 CRUD 入口，
// 每次变更落库后向队列发布 upsert 任务
package object

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/messaging"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/milvus"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
)

var tracer = otel.Tracer("object")

// Service 对象写路径服务
type Service struct {
	objectRepo repository.ObjectRepository
	sourceRepo repository.SourceRepository
	vectorRepo *milvus.Repository
	producer   *messaging.Producer
	cache      *redis.Cache
}

// NewService 创建对象服务
func NewService(
	objectRepo repository.ObjectRepository,
	sourceRepo repository.SourceRepository,
	vectorRepo *milvus.Repository,
	producer *messaging.Producer,
	cache *redis.Cache,
) *Service {
	return &Service{
		objectRepo: objectRepo,
		sourceRepo: sourceRepo,
		vectorRepo: vectorRepo,
		producer:   producer,
		cache:      cache,
	}
}

// CreateInput 创建对象的输入
type CreateInput struct {
	ObjectType  entity.ObjectType
	Title       string
	Body        string
	RefRanges   []string
	Modality    string
	Tags        []string
	SourceID    string
	Stability   float64
	PublishedAt time.Time
}

// Create 创建对象并发布 upsert 任务。新对象一律 embedding_pending，
// 向量由 worker 异步补齐。
func (s *Service) Create(ctx context.Context, in *CreateInput) (*entity.Object, error) {
	ctx, span := tracer.Start(ctx, "object.Create",
		trace.WithAttributes(attribute.String("object_type", string(in.ObjectType))))
	defer span.End()

	if !in.ObjectType.Valid() {
		return nil, errors.ErrInvalidParam.WithDetail("unknown object_type: " + string(in.ObjectType))
	}
	if in.Title == "" && in.Body == "" {
		return nil, errors.ErrInvalidParam.WithDetail("title and body cannot both be empty")
	}
	if in.SourceID != "" {
		src, err := s.sourceRepo.GetByID(ctx, in.SourceID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if src == nil {
			return nil, errors.ErrSourceNotFound.WithDetail(in.SourceID)
		}
	}

	publishedAt := in.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = time.Now()
	}

	obj := &entity.Object{
		ID:               uuid.NewString(),
		ObjectType:       in.ObjectType,
		Title:            in.Title,
		Body:             in.Body,
		RefRanges:        in.RefRanges,
		Modality:         in.Modality,
		Tags:             in.Tags,
		SourceID:         in.SourceID,
		Stability:        clamp01(in.Stability),
		EmbeddingPending: true,
		PublishedAt:      publishedAt,
	}

	if err := s.objectRepo.Create(ctx, obj); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.notify(ctx, obj.ID, "created")
	return obj, nil
}

// Get 获取对象
func (s *Service) Get(ctx context.Context, id string) (*entity.Object, error) {
	obj, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.ErrObjectNotFound
	}
	return obj, nil
}

// UpdateInput 更新对象的输入，nil 字段不修改
type UpdateInput struct {
	Title     *string
	Body      *string
	RefRanges []string
	Tags      []string
	Stability *float64
}

// Update 更新对象内容。文本变更会使向量失效，重新置 pending
// 并触发一轮 upsert。
func (s *Service) Update(ctx context.Context, id string, in *UpdateInput) (*entity.Object, error) {
	ctx, span := tracer.Start(ctx, "object.Update",
		trace.WithAttributes(attribute.String("object_id", id)))
	defer span.End()

	obj, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if obj == nil {
		return nil, errors.ErrObjectNotFound
	}
	if obj.Tombstoned {
		return nil, errors.New(errors.CodeObjectTombstoned, "cannot update tombstoned object")
	}

	textChanged := false
	if in.Title != nil && *in.Title != obj.Title {
		obj.Title = *in.Title
		textChanged = true
	}
	if in.Body != nil && *in.Body != obj.Body {
		obj.Body = *in.Body
		textChanged = true
	}
	if in.RefRanges != nil {
		obj.RefRanges = in.RefRanges
	}
	if in.Tags != nil {
		obj.Tags = in.Tags
	}
	if in.Stability != nil {
		obj.Stability = clamp01(*in.Stability)
	}
	if textChanged {
		obj.EmbeddingPending = true
	}

	if err := s.objectRepo.Update(ctx, obj); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.cache.InvalidateObject(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate object cache", "error", err, "object_id", id)
	}

	s.notify(ctx, id, "updated")
	return obj, nil
}

// SetEmbedding 采集协作方直接写入预计算向量：写 Milvus、清 pending、
// 发布 upsert 任务。幂等，重复写入覆盖旧向量。
func (s *Service) SetEmbedding(ctx context.Context, id string, vector []float32) error {
	ctx, span := tracer.Start(ctx, "object.SetEmbedding",
		trace.WithAttributes(attribute.String("object_id", id)))
	defer span.End()

	if len(vector) != milvus.VectorDimension {
		return errors.ErrInvalidParam.WithDetail("embedding dimension mismatch")
	}

	obj, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if obj == nil {
		return errors.ErrObjectNotFound
	}
	if obj.Tombstoned {
		return errors.New(errors.CodeObjectTombstoned, "cannot embed tombstoned object")
	}

	if err := s.vectorRepo.UpsertVector(ctx, &milvus.EvidenceVector{
		ID:          obj.ID,
		Vector:      vector,
		ObjectType:  string(obj.ObjectType),
		Modality:    obj.Modality,
		SourceID:    obj.SourceID,
		Tombstoned:  false,
		PublishedAt: obj.PublishedAt.Unix(),
	}); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeVectorDBError, "failed to store embedding")
	}

	if err := s.objectRepo.SetEmbeddingPending(ctx, id, false); err != nil {
		span.RecordError(err)
		return err
	}

	s.notify(ctx, id, "embedding")
	return nil
}

// Tombstone 软删除：标记墓碑并发布清理任务，worker 负责
// 撤掉向量和关联边。
func (s *Service) Tombstone(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "object.Tombstone",
		trace.WithAttributes(attribute.String("object_id", id)))
	defer span.End()

	obj, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if obj == nil {
		return errors.ErrObjectNotFound
	}
	if obj.Tombstoned {
		// 已墓碑，幂等返回
		return nil
	}

	if err := s.objectRepo.Tombstone(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	if err := s.cache.InvalidateObject(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate object cache", "error", err, "object_id", id)
	}

	if _, err := s.producer.PublishObjectTombstoned(ctx, id); err != nil {
		logger.FromContext(ctx).Error("failed to publish tombstone task", "error", err, "object_id", id)
	}
	return nil
}

// List 按过滤条件分页列出对象
func (s *Service) List(ctx context.Context, filter *repository.ObjectFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Object], error) {
	return s.objectRepo.List(ctx, filter, pagination)
}

// Notify 采集协作方的 fire-and-forget 入队：只验证对象存在即入队
func (s *Service) Notify(ctx context.Context, id string) error {
	obj, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if obj == nil {
		return errors.ErrObjectNotFound
	}
	s.notify(ctx, id, "updated")
	return nil
}

// CreateSource 注册来源
func (s *Service) CreateSource(ctx context.Context, src *entity.Source) (*entity.Source, error) {
	ctx, span := tracer.Start(ctx, "object.CreateSource")
	defer span.End()

	if src.Origin == "" {
		return nil, errors.ErrInvalidParam.WithDetail("source origin is required")
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if err := s.sourceRepo.Create(ctx, src); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return src, nil
}

// ListSources 列出全部来源
func (s *Service) ListSources(ctx context.Context) ([]*entity.Source, error) {
	return s.sourceRepo.List(ctx)
}

// notify 发布 upsert 任务，失败只记日志不回滚：
// 对象已落库，丢失的任务可由下一次 notify 补发
func (s *Service) notify(ctx context.Context, id, kind string) {
	if _, err := s.producer.PublishObjectChanged(ctx, &messaging.ObjectChangedMessage{
		ObjectID:   id,
		ChangeKind: kind,
	}); err != nil {
		logger.FromContext(ctx).Error("failed to publish upsert task", "error", err, "object_id", id)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
