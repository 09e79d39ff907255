package insight

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
	"github.com/dmedlin87/Theoria-sub008/pkg/metrics"
)

// listCacheTTL 洞见列表缓存时长，写路径靠 InvalidateInsightList 保证新鲜度
const listCacheTTL = 30 * time.Second

// CooldownClearer 冷却窗口的提前解除
type CooldownClearer interface {
	Clear(ctx context.Context, clusterID, insightType string) error
}

// QueryService 洞见读路径与用户反馈
type QueryService struct {
	insightRepo repository.InsightRepository
	actionRepo  repository.ActionRepository
	txManager   repository.Transactor
	cache       ResultCache
	cooldown    CooldownClearer
}

// NewQueryService 创建洞见查询服务
func NewQueryService(
	insightRepo repository.InsightRepository,
	actionRepo repository.ActionRepository,
	txManager repository.Transactor,
	cache ResultCache,
	cooldown CooldownClearer,
) *QueryService {
	return &QueryService{
		insightRepo: insightRepo,
		actionRepo:  actionRepo,
		txManager:   txManager,
		cache:       cache,
		cooldown:    cooldown,
	}
}

// Get 获取单条洞见
func (s *QueryService) Get(ctx context.Context, id string) (*entity.Insight, error) {
	ctx, span := tracer.Start(ctx, "insight.Get",
		trace.WithAttributes(attribute.String("insight_id", id)))
	defer span.End()

	ins, err := s.insightRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ins == nil {
		return nil, errors.ErrInsightNotFound
	}
	return ins, nil
}

// List 分页列出洞见，首页查询走缓存
func (s *QueryService) List(ctx context.Context, filter *repository.InsightFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Insight], error) {
	ctx, span := tracer.Start(ctx, "insight.List")
	defer span.End()

	// 仅缓存无时间窗、无评分下限的查询，这两类过滤的键空间无界
	cacheable := filter.Since.IsZero() && filter.ClusterID == "" && filter.MinScore == 0
	if cacheable {
		key := redis.BuildInsightListKey(string(filter.Type), string(filter.Status), filter.Mode, pagination.Page, pagination.PageSize)
		data, err := s.cache.GetOrLoadSafe(ctx, key, listCacheTTL, func() (interface{}, error) {
			return s.insightRepo.List(ctx, filter, pagination)
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		var result repository.PagedResult[*entity.Insight]
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, errors.Wrap(err, errors.CodeCacheError, "failed to decode cached insight list")
		}
		return &result, nil
	}

	result, err := s.insightRepo.List(ctx, filter, pagination)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// ListActions 列出洞见的反馈历史
func (s *QueryService) ListActions(ctx context.Context, insightID string) ([]*entity.UserAction, error) {
	ins, err := s.insightRepo.GetByID(ctx, insightID)
	if err != nil {
		return nil, err
	}
	if ins == nil {
		return nil, errors.ErrInsightNotFound
	}
	return s.actionRepo.ListByInsight(ctx, insightID)
}

// RecordAction 记录用户反馈并推进洞见状态。
// 反馈只追加不修改，状态机单向：dismissed/muted 之后不再回到 active。
func (s *QueryService) RecordAction(ctx context.Context, insightID string, actionType entity.ActionType, confidence float64) (*entity.UserAction, error) {
	ctx, span := tracer.Start(ctx, "insight.RecordAction",
		trace.WithAttributes(
			attribute.String("insight_id", insightID),
			attribute.String("action", string(actionType)),
		))
	defer span.End()

	if !actionType.Valid() {
		return nil, errors.ErrInvalidAction.WithDetail(string(actionType))
	}

	ins, err := s.insightRepo.GetByID(ctx, insightID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ins == nil {
		return nil, errors.ErrInsightNotFound
	}

	action := &entity.UserAction{
		ID:         uuid.NewString(),
		InsightID:  insightID,
		Action:     actionType,
		InsightTyp: ins.Type,
		Mode:       ins.Mode,
		Score:      ins.Score,
		Confidence: confidence,
	}

	if err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.actionRepo.Create(txCtx, action); err != nil {
			return err
		}
		return s.insightRepo.UpdateStatus(txCtx, insightID, actionType.NextStatus())
	}); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// discard/mute 提前解除集群冷却：用户明确不要这条，
	// 同一集群后续若真有信号应当立即可以重新发射
	if actionType == entity.ActionDiscard || actionType == entity.ActionMute {
		if err := s.cooldown.Clear(ctx, ins.ClusterID, string(ins.Type)); err != nil {
			logger.FromContext(ctx).Warn("failed to clear cooldown", "error", err, "cluster_id", ins.ClusterID)
		}
	}

	if err := s.cache.InvalidateInsightList(ctx); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate insight list cache", "error", err)
	}

	metrics.UserActionsTotal.WithLabelValues(string(actionType)).Inc()
	return action, nil
}
