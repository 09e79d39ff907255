// Package insight 洞见引擎的核心编排：对象 upsert 流水线、
// 反馈处理与周期性 Bundle 扫描
package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/application/feature"
	"github.com/dmedlin87/Theoria-sub008/internal/application/fusion"
	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/milvus"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
	"github.com/dmedlin87/Theoria-sub008/pkg/metrics"
)

var tracer = otel.Tracer("insight")

// maxInsightMembers 洞见载荷中记录的最大成员数
const maxInsightMembers = 8

// 流水线对各外部协作者只依赖一个窄接口，具体实现由装配层注入

// VectorStore 向量库：写入、召回与墓碑
type VectorStore interface {
	UpsertVector(ctx context.Context, vec *milvus.EvidenceVector) error
	SearchNeighbors(ctx context.Context, params *milvus.SearchParams) ([]*milvus.SearchResult, error)
	MarkTombstoned(ctx context.Context, objectID string) error
}

// Embedder 嵌入协作者
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// ObjectLocker 对象级 advisory lock
type ObjectLocker interface {
	Acquire(ctx context.Context, objectID string) (string, bool, error)
	Extend(ctx context.Context, objectID, token string) (bool, error)
	Release(ctx context.Context, objectID, token string) error
}

// CooldownMarker 冷却窗口的快速否决缓存
type CooldownMarker interface {
	Active(ctx context.Context, clusterID, insightType string) (bool, error)
	Mark(ctx context.Context, clusterID, insightType string, window time.Duration) error
}

// TermObserver 词项共现统计的写入侧
type TermObserver interface {
	Observe(ctx context.Context, terms []string) error
	ObservePair(ctx context.Context, shared []string) error
}

// Broadcaster 洞见事件广播
type Broadcaster interface {
	Publish(ctx context.Context, event interface{}) error
}

// ResultCache 查询结果缓存
type ResultCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
	InvalidateInsightList(ctx context.Context) error
}

// UpsertService 对象 upsert 流水线。
// 一次 upsert：取锁 → 嵌入 → 近邻召回 → 特征 → 增量建边 → 融合评分 →
// 分类 → 冷却/垃圾门槛 → 发射。整个流程受墙钟预算约束。
type UpsertService struct {
	objectRepo  repository.ObjectRepository
	edgeRepo    repository.EdgeRepository
	insightRepo repository.InsightRepository
	weightRepo  repository.WeightRepository
	txManager   repository.Transactor

	vectorRepo VectorStore
	embedder   Embedder
	graphSvc   *graph.Service
	features   *feature.Computer
	termStats  TermObserver
	lock       ObjectLocker
	cooldown   CooldownMarker
	eventBus   Broadcaster
	cache      ResultCache

	cfg *config.EngineConfig
	now func() time.Time
}

// NewUpsertService 创建 upsert 服务
func NewUpsertService(
	objectRepo repository.ObjectRepository,
	edgeRepo repository.EdgeRepository,
	insightRepo repository.InsightRepository,
	weightRepo repository.WeightRepository,
	txManager repository.Transactor,
	vectorRepo VectorStore,
	embedder Embedder,
	graphSvc *graph.Service,
	features *feature.Computer,
	termStats TermObserver,
	lock ObjectLocker,
	cooldown CooldownMarker,
	eventBus Broadcaster,
	cache ResultCache,
	cfg *config.EngineConfig,
) *UpsertService {
	return &UpsertService{
		objectRepo:  objectRepo,
		edgeRepo:    edgeRepo,
		insightRepo: insightRepo,
		weightRepo:  weightRepo,
		txManager:   txManager,
		vectorRepo:  vectorRepo,
		embedder:    embedder,
		graphSvc:    graphSvc,
		features:    features,
		termStats:   termStats,
		lock:        lock,
		cooldown:    cooldown,
		eventBus:    eventBus,
		cache:       cache,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ProcessObject 处理一次对象变更。消息至少投递一次，本方法必须幂等：
// 边 upsert 天然幂等，洞见由冷却窗口去重。
func (s *UpsertService) ProcessObject(ctx context.Context, objectID string) error {
	ctx, span := tracer.Start(ctx, "insight.ProcessObject",
		trace.WithAttributes(attribute.String("object_id", objectID)))
	defer span.End()

	start := s.now()
	status := "completed"
	defer func() {
		metrics.UpsertTotal.WithLabelValues(status).Inc()
		metrics.UpsertDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}()

	// 墙钟预算：超时的 upsert 释放锁并退出，消息留待重试
	if s.cfg.TaskBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TaskBudget)
		defer cancel()
	}

	// 对象级 advisory lock，同一对象的 upsert 串行化
	token, acquired, err := s.lock.Acquire(ctx, objectID)
	if err != nil {
		status = "failed"
		return errors.Wrap(err, errors.CodeCacheError, "failed to acquire object lock")
	}
	if !acquired {
		status = "skipped"
		return fmt.Errorf("object %s is locked by another worker", objectID)
	}
	defer func() {
		_ = s.lock.Release(context.WithoutCancel(ctx), objectID, token)
	}()

	obj, err := s.objectRepo.GetByID(ctx, objectID)
	if err != nil {
		status = "failed"
		return err
	}
	if obj == nil {
		// 对象已被硬删除，消息失效
		status = "skipped"
		return nil
	}

	if obj.Tombstoned {
		status = "tombstoned"
		return s.processTombstone(ctx, obj)
	}

	if obj.NeedsReview {
		status = "skipped"
		logger.FromContext(ctx).Info("object flagged for review, skipping pipeline", "object_id", objectID)
		return nil
	}

	// 数据错误不让任务失败：标记复核并跳过评分
	if obj.Title == "" && obj.Body == "" {
		status = "skipped"
		logger.FromContext(ctx).Warn("object has no text, flagging for review", "object_id", objectID)
		return s.objectRepo.SetNeedsReview(ctx, objectID, true)
	}

	// 阶段一：嵌入。同一向量既写入 Milvus 也用于召回，只算一次
	vec, err := s.embedder.EmbedOne(ctx, obj.Title+"\n"+obj.Body)
	if err != nil {
		status = "failed"
		return errors.Wrap(err, errors.CodeEmbeddingFailed, "embedding collaborator call failed")
	}
	if obj.EmbeddingPending {
		if err := s.storeVector(ctx, obj, vec); err != nil {
			status = "failed"
			return err
		}
	}

	// 嵌入是最慢的外呼，完成后给锁续约，避免图计算期间锁过期
	renewed, err := s.lock.Extend(ctx, objectID, token)
	if err != nil {
		status = "failed"
		return errors.Wrap(err, errors.CodeCacheError, "failed to extend object lock")
	}
	if !renewed {
		status = "skipped"
		return fmt.Errorf("object lock for %s expired during embedding", objectID)
	}

	// 阶段二：词项统计与近邻召回
	if err := s.termStats.Observe(ctx, feature.Tokenize(obj)); err != nil {
		// 统计失败不阻断流水线
		logger.FromContext(ctx).Warn("term stats update failed", "error", err)
	}

	candidates, candObjects, err := s.recallCandidates(ctx, obj, vec)
	if err != nil {
		status = "failed"
		return err
	}
	metrics.UpsertCandidates.Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		// 冷索引：图里还没有可比对的对象
		return nil
	}

	// 阶段三到五共用一个 Postgres 事务：一次 upsert 周期的边写入与
	// 洞见发射要么整体落库要么整体回滚，超时不会留下半截的图
	var ins *entity.Insight
	var suppressed bool
	if err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// 阶段三：特征计算与增量建边
		scored, err := s.buildEdges(txCtx, obj, candidates, candObjects)
		if err != nil {
			return err
		}

		// 阶段四：融合评分与分类
		profile, err := s.activeProfile(txCtx)
		if err != nil {
			return err
		}

		fusion.FuseRanks(scored, s.cfg.RRFConstant)
		fusion.ScoreAll(scored, profile)
		ranked := fusion.TopByScore(scored)
		if len(ranked) == 0 {
			return nil
		}

		top := ranked[0]
		topObj := candObjects[top.ObjectID]
		if topObj == nil {
			return nil
		}

		contradiction, err := s.detectContradiction(txCtx, obj, topObj)
		if err != nil {
			return err
		}

		// 集群提升：窗口内至少两条配对超过次级阈值时给最高分加成
		supporting := fusion.SupportingPairs(ranked, s.cfg.MinorPairThreshold)
		score := fusion.ClusterLift(top.Score, supporting, s.cfg.ClusterLiftBoost)

		diverse := fusion.Diverse(top.Features)
		cls, ok := fusion.Classify(score, contradiction, diverse, profile)
		if !ok {
			// 分够但不够多样的配对直接压下，不降级发射
			if !diverse && !contradiction && score >= profile.TauLead {
				suppressed = true
				metrics.InsightsSuppressed.WithLabelValues("diversity_gate").Inc()
			}
			return nil
		}

		// 阶段五：门槛与发射
		ins, err = s.emit(txCtx, obj, topObj, ranked, cls, profile)
		if err != nil {
			return err
		}
		if ins == nil {
			suppressed = true
		}
		return nil
	}); err != nil {
		status = "failed"
		return err
	}

	if suppressed {
		status = "suppressed"
		return nil
	}
	if ins == nil {
		return nil
	}

	s.afterEmit(ctx, ins)
	return nil
}

// processTombstone 墓碑清理：撤掉向量与边。已发射的洞见保留，
// 但不再出现在后续检索中。
func (s *UpsertService) processTombstone(ctx context.Context, obj *entity.Object) error {
	ctx, span := tracer.Start(ctx, "insight.processTombstone",
		trace.WithAttributes(attribute.String("object_id", obj.ID)))
	defer span.End()

	if err := s.vectorRepo.MarkTombstoned(ctx, obj.ID); err != nil {
		return err
	}
	return s.graphSvc.RemoveObject(ctx, obj.ID)
}

// storeVector 写入对象向量并清掉 pending 标记。
// 写入失败时保持 pending，消息重试后再次尝试。
func (s *UpsertService) storeVector(ctx context.Context, obj *entity.Object, vec []float32) error {
	ctx, span := tracer.Start(ctx, "insight.storeVector",
		trace.WithAttributes(attribute.String("object_id", obj.ID)))
	defer span.End()

	if err := s.vectorRepo.UpsertVector(ctx, &milvus.EvidenceVector{
		ID:          obj.ID,
		Vector:      vec,
		ObjectType:  string(obj.ObjectType),
		Modality:    obj.Modality,
		SourceID:    obj.SourceID,
		Tombstoned:  false,
		PublishedAt: obj.PublishedAt.Unix(),
	}); err != nil {
		return errors.Wrap(err, errors.CodeVectorDBError, "failed to upsert vector")
	}

	if err := s.objectRepo.SetEmbeddingPending(ctx, obj.ID, false); err != nil {
		return err
	}
	obj.EmbeddingPending = false
	return nil
}

// recallCandidates 近邻召回并加载候选对象
func (s *UpsertService) recallCandidates(ctx context.Context, obj *entity.Object, vec []float32) ([]*milvus.SearchResult, map[string]*entity.Object, error) {
	results, err := s.vectorRepo.SearchNeighbors(ctx, &milvus.SearchParams{
		QueryVector: vec,
		TopK:        s.cfg.TopK,
		ExcludeID:   obj.ID,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeVectorDBError, "neighbor search failed")
	}
	if len(results) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}

	objects, err := s.objectRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]*entity.Object, len(objects))
	for _, o := range objects {
		if o.Tombstoned || o.NeedsReview {
			continue
		}
		byID[o.ID] = o
	}

	filtered := results[:0]
	for _, r := range results {
		if byID[r.ID] != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered, byID, nil
}

// buildEdges 为每个候选计算特征并增量更新图
func (s *UpsertService) buildEdges(ctx context.Context, obj *entity.Object, results []*milvus.SearchResult, objects map[string]*entity.Object) ([]*fusion.Candidate, error) {
	ctx, span := tracer.Start(ctx, "insight.buildEdges",
		trace.WithAttributes(attribute.Int("candidate_count", len(results))))
	defer span.End()

	nb, err := s.graphSvc.LoadNeighborhood(ctx, obj.ID)
	if err != nil {
		return nil, err
	}

	candIDs := make([]string, 0, len(results))
	for _, r := range results {
		candIDs = append(candIDs, r.ID)
	}
	candAdj, err := s.edgeRepo.NeighborIDsBatch(ctx, candIDs)
	if err != nil {
		return nil, err
	}

	anchorTerms := feature.Tokenize(obj)

	candidates := make([]*fusion.Candidate, 0, len(results))
	for _, r := range results {
		cand := objects[r.ID]
		if cand == nil {
			continue
		}

		candSet := make(map[string]bool, len(candAdj[r.ID]))
		for _, n := range candAdj[r.ID] {
			candSet[n] = true
		}

		feats, err := s.features.Compute(ctx, &feature.PairInput{
			Anchor:             obj,
			Candidate:          cand,
			Semantic:           float64(r.Score),
			Neighborhood:       nb,
			CandidateNeighbors: candSet,
		})
		if err != nil {
			return nil, err
		}

		edge := &entity.Edge{
			ID:       uuid.NewString(),
			SrcID:    obj.ID,
			DstID:    cand.ID,
			Kind:     entity.EdgeKindSemanticSim,
			Weight:   feats.Semantic,
			Features: feats,
		}
		if err := s.graphSvc.UpsertEdge(ctx, edge); err != nil {
			return nil, err
		}

		if shared := feature.Intersect(anchorTerms, feature.Tokenize(cand)); len(shared) > 0 {
			if err := s.termStats.ObservePair(ctx, shared); err != nil {
				logger.FromContext(ctx).Warn("pair stats update failed", "error", err)
			}
		}

		candidates = append(candidates, &fusion.Candidate{
			ObjectID: cand.ID,
			Features: feats,
		})
	}

	return candidates, nil
}

// detectContradiction 检查锚点与候选之间是否有矛盾信号
func (s *UpsertService) detectContradiction(ctx context.Context, anchor, candidate *entity.Object) (bool, error) {
	var kinds []entity.EdgeKind

	srcID, dstID := anchor.ID, candidate.ID
	if srcID > dstID {
		srcID, dstID = dstID, srcID
	}
	edge, err := s.edgeRepo.Get(ctx, srcID, dstID, entity.EdgeKindContradiction)
	if err != nil {
		return false, err
	}
	if edge != nil {
		kinds = append(kinds, edge.Kind)
	}

	return fusion.HasContradiction(anchor, candidate, kinds), nil
}

// activeProfile 取当前模式的最新权重档案，缺失时落默认档案
func (s *UpsertService) activeProfile(ctx context.Context) (*entity.WeightProfile, error) {
	profile, err := s.weightRepo.Latest(ctx, entity.DefaultMode)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = entity.DefaultWeightProfile(entity.DefaultMode)
	}
	return profile, nil
}

// emit 过冷却与垃圾门槛后组装并落库洞见，被门槛拦下时返回 nil。
// 事务边界与发射后的广播由调用方负责。
func (s *UpsertService) emit(ctx context.Context, anchor, top *entity.Object, ranked []*fusion.Candidate, cls fusion.Classification, profile *entity.WeightProfile) (*entity.Insight, error) {
	ctx, span := tracer.Start(ctx, "insight.emit",
		trace.WithAttributes(
			attribute.String("insight_type", string(cls.Type)),
			attribute.Float64("score", cls.Score),
		))
	defer span.End()

	clusterID := fusion.ClusterKey(anchor.ID, top.ID)
	sourceKey := fusion.SourceKey(anchor.SourceID, top.SourceID)

	// 冷却快速否决（Redis），权威判定在 Postgres
	if active, err := s.cooldown.Active(ctx, clusterID, string(cls.Type)); err == nil && active {
		metrics.InsightsSuppressed.WithLabelValues("cooldown").Inc()
		return nil, nil
	}
	prev, err := s.insightRepo.LatestInCooldown(ctx, clusterID, cls.Type, s.cfg.InsightCooldown)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		metrics.InsightsSuppressed.WithLabelValues("cooldown").Inc()
		return nil, nil
	}

	// 同来源对的冷却：单一来源高产时不许刷屏。
	// 查询键与写入 SourceKey 同一规范形式，空来源也能对上
	count, err := s.insightRepo.CountBySourceKeySince(ctx, sourceKey, s.now().Add(-s.cfg.SourceCooldown))
	if err != nil {
		return nil, err
	}
	if count > 0 {
		metrics.InsightsSuppressed.WithLabelValues("source_cooldown").Inc()
		return nil, nil
	}

	// 垃圾门槛：聚类提升必须超过近期分布的高分位，
	// 防止高密度但无信息量的邻域反复发射
	if cls.Type == entity.InsightTypeConvergence {
		pass, err := s.passesSpamGate(ctx, ranked[0].Features.ClusteringDelta)
		if err != nil {
			return nil, err
		}
		if !pass {
			metrics.InsightsSuppressed.WithLabelValues("spam_gate").Inc()
			return nil, nil
		}
	}

	snapshot, err := s.graphSvc.Snapshot(ctx, anchor.ID)
	if err != nil {
		return nil, err
	}

	members := make([]entity.InsightMember, 0, maxInsightMembers)
	for _, c := range ranked {
		if len(members) >= maxInsightMembers {
			break
		}
		if c.Score < s.cfg.MinorPairThreshold {
			break
		}
		members = append(members, entity.InsightMember{
			ObjectID:  c.ObjectID,
			PairScore: c.Score,
			Features:  c.Features,
		})
	}

	ins := &entity.Insight{
		ID:        uuid.NewString(),
		Type:      cls.Type,
		Score:     cls.Score,
		ClusterID: clusterID,
		SourceKey: sourceKey,
		Mode:      profile.Mode,
		Status:    entity.InsightStatusActive,
		Payload: entity.InsightPayload{
			Members:   members,
			Explainer: ranked[0].Features,
			Snapshot:  *snapshot,
		},
	}

	if err := s.insightRepo.Create(ctx, ins); err != nil {
		return nil, err
	}
	return ins, nil
}

// afterEmit 事务提交后的副作用：冷却标记、列表缓存失效、事件广播。
// 都不影响已落库的洞见，失败只记日志。
func (s *UpsertService) afterEmit(ctx context.Context, ins *entity.Insight) {
	_ = s.cooldown.Mark(ctx, ins.ClusterID, string(ins.Type), s.cfg.InsightCooldown)
	if err := s.cache.InvalidateInsightList(ctx); err != nil {
		logger.FromContext(ctx).Warn("insight list cache invalidation failed", "error", err)
	}
	if err := s.eventBus.Publish(ctx, ins); err != nil {
		logger.FromContext(ctx).Warn("failed to broadcast insight", "error", err, "insight_id", ins.ID)
	}

	metrics.InsightsEmitted.WithLabelValues(string(ins.Type)).Inc()
	logger.FromContext(ctx).Info("insight emitted",
		"insight_id", ins.ID,
		"type", ins.Type,
		"score", ins.Score,
		"cluster_id", ins.ClusterID,
	)
}

// passesSpamGate 聚类提升分位数门槛
func (s *UpsertService) passesSpamGate(ctx context.Context, delta float64) (bool, error) {
	recent, err := s.edgeRepo.RecentEdges(ctx, s.now().Add(-s.cfg.ClusterWindow), 500)
	if err != nil {
		return false, err
	}
	if len(recent) < 10 {
		// 样本太少时不拦截，冷启动阶段门槛无意义
		return true, nil
	}

	samples := make([]float64, 0, len(recent))
	for _, e := range recent {
		samples = append(samples, e.Features.ClusteringDelta)
	}

	threshold := fusion.Percentile(samples, s.cfg.ClusterLiftPercentile)
	return delta >= threshold, nil
}
