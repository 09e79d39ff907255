package insight

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
	"github.com/dmedlin87/Theoria-sub008/pkg/metrics"
)

// bundleScanLimit 单轮扫描读取的最近边数量上限
const bundleScanLimit = 2000

// minBundleEdges 一个锚点至少要有这么多条合格边才考虑成束
const minBundleEdges = 3

// Bundler 周期性 Bundle 扫描：一个对象在滚动窗口内持续吸引
// 新的强关联（跨多个自然日），说明话题有动量，把这些边打包成一条
// Bundle 洞见，而不是放任逐条 Lead 刷屏。
type Bundler struct {
	objectRepo  repository.ObjectRepository
	edgeRepo    repository.EdgeRepository
	insightRepo repository.InsightRepository
	txManager   repository.Transactor
	graphSvc    *graph.Service
	cooldown    CooldownMarker
	eventBus    Broadcaster
	cfg         *config.EngineConfig
	now         func() time.Time
}

// NewBundler 创建 Bundle 扫描器
func NewBundler(
	objectRepo repository.ObjectRepository,
	edgeRepo repository.EdgeRepository,
	insightRepo repository.InsightRepository,
	txManager repository.Transactor,
	graphSvc *graph.Service,
	cooldown CooldownMarker,
	eventBus Broadcaster,
	cfg *config.EngineConfig,
) *Bundler {
	return &Bundler{
		objectRepo:  objectRepo,
		edgeRepo:    edgeRepo,
		insightRepo: insightRepo,
		txManager:   txManager,
		graphSvc:    graphSvc,
		cooldown:    cooldown,
		eventBus:    eventBus,
		cfg:         cfg,
		now:         time.Now,
	}
}

// anchorMomentum 锚点的窗口内动量统计
type anchorMomentum struct {
	edges []*entity.Edge
	days  map[string]bool
}

// Scan 跑一轮 Bundle 扫描，返回发射的洞见数
func (b *Bundler) Scan(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "insight.Bundler.Scan")
	defer span.End()

	window := time.Duration(b.cfg.BundleMomentumDays) * 24 * time.Hour
	recent, err := b.edgeRepo.RecentEdges(ctx, b.now().Add(-window), bundleScanLimit)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	byAnchor := make(map[string]*anchorMomentum)
	for _, e := range recent {
		if e.Weight < b.cfg.MinorPairThreshold {
			continue
		}
		m := byAnchor[e.SrcID]
		if m == nil {
			m = &anchorMomentum{days: make(map[string]bool)}
			byAnchor[e.SrcID] = m
		}
		m.edges = append(m.edges, e)
		m.days[e.UpdatedAt.Format("2006-01-02")] = true
	}

	emitted := 0
	for anchorID, m := range byAnchor {
		if len(m.edges) < minBundleEdges || len(m.days) < b.cfg.BundleMomentumDays {
			continue
		}
		ok, err := b.emitBundle(ctx, anchorID, m.edges)
		if err != nil {
			logger.FromContext(ctx).Warn("bundle emit failed", "error", err, "anchor_id", anchorID)
			continue
		}
		if ok {
			emitted++
		}
	}

	span.SetAttributes(attribute.Int("bundles_emitted", emitted))
	return emitted, nil
}

// emitBundle 把一个锚点的合格边打包成 Bundle 洞见。
// 集群键直接用锚点 ID：Bundle 以对象为中心而非对为中心。
func (b *Bundler) emitBundle(ctx context.Context, anchorID string, edges []*entity.Edge) (bool, error) {
	clusterID := anchorID

	if active, err := b.cooldown.Active(ctx, clusterID, string(entity.InsightTypeBundle)); err == nil && active {
		metrics.InsightsSuppressed.WithLabelValues("cooldown").Inc()
		return false, nil
	}
	prev, err := b.insightRepo.LatestInCooldown(ctx, clusterID, entity.InsightTypeBundle, b.cfg.InsightCooldown)
	if err != nil {
		return false, err
	}
	if prev != nil {
		metrics.InsightsSuppressed.WithLabelValues("cooldown").Inc()
		return false, nil
	}

	// 动量必须来自不同来源：同一个来源连刷几天只是它自己在刷屏，
	// 不构成跨来源的话题动量，不成束。
	distinct, err := b.distinctSources(ctx, edges)
	if err != nil {
		return false, err
	}
	if distinct < 2 {
		metrics.InsightsSuppressed.WithLabelValues("source_overlap").Inc()
		return false, nil
	}

	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Weight > edges[j].Weight
	})

	members := make([]entity.InsightMember, 0, maxInsightMembers)
	var score float64
	for _, e := range edges {
		if len(members) < maxInsightMembers {
			members = append(members, entity.InsightMember{
				ObjectID:  e.DstID,
				PairScore: e.Weight,
				Features:  e.Features,
			})
		}
		score += e.Weight
	}
	score /= float64(len(edges))

	snapshot, err := b.graphSvc.Snapshot(ctx, anchorID)
	if err != nil {
		return false, err
	}

	ins := &entity.Insight{
		ID:        uuid.NewString(),
		Type:      entity.InsightTypeBundle,
		Score:     score,
		ClusterID: clusterID,
		SourceKey: "-",
		Mode:      entity.DefaultMode,
		Status:    entity.InsightStatusActive,
		Payload: entity.InsightPayload{
			Members:   members,
			Explainer: edges[0].Features,
			Snapshot:  *snapshot,
		},
	}

	if err := b.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return b.insightRepo.Create(txCtx, ins)
	}); err != nil {
		return false, err
	}

	_ = b.cooldown.Mark(ctx, clusterID, string(entity.InsightTypeBundle), b.cfg.InsightCooldown)
	if err := b.eventBus.Publish(ctx, ins); err != nil {
		logger.FromContext(ctx).Warn("failed to broadcast bundle insight", "error", err, "insight_id", ins.ID)
	}

	metrics.InsightsEmitted.WithLabelValues(string(entity.InsightTypeBundle)).Inc()
	logger.FromContext(ctx).Info("bundle insight emitted",
		"insight_id", ins.ID,
		"anchor_id", anchorID,
		"member_count", len(members),
		"score", score,
	)
	return true, nil
}

// distinctSources 统计这批边的目标对象覆盖了多少个不同来源
func (b *Bundler) distinctSources(ctx context.Context, edges []*entity.Edge) (int, error) {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.DstID)
	}
	objs, err := b.objectRepo.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(objs))
	for _, o := range objs {
		seen[o.SourceID] = true
	}
	return len(seen), nil
}
