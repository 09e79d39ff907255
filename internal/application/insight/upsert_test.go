package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmedlin87/Theoria-sub008/internal/application/feature"
	"github.com/dmedlin87/Theoria-sub008/internal/application/fusion"
	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/milvus"
)

// ---- 内存伪件：流水线只依赖仓储接口与窄协作者接口，全部可以在内存里替身 ----

type memObjectRepo struct {
	objects map[string]*entity.Object
}

func newMemObjectRepo() *memObjectRepo {
	return &memObjectRepo{objects: make(map[string]*entity.Object)}
}

func (r *memObjectRepo) Create(_ context.Context, obj *entity.Object) error {
	r.objects[obj.ID] = obj
	return nil
}

func (r *memObjectRepo) GetByID(_ context.Context, id string) (*entity.Object, error) {
	return r.objects[id], nil
}

func (r *memObjectRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Object, error) {
	out := make([]*entity.Object, 0, len(ids))
	for _, id := range ids {
		if o := r.objects[id]; o != nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memObjectRepo) Update(_ context.Context, obj *entity.Object) error {
	r.objects[obj.ID] = obj
	return nil
}

func (r *memObjectRepo) List(_ context.Context, _ *repository.ObjectFilter, p repository.Pagination) (*repository.PagedResult[*entity.Object], error) {
	return repository.NewPagedResult[*entity.Object](nil, 0, p), nil
}

func (r *memObjectRepo) SetEmbeddingPending(_ context.Context, id string, pending bool) error {
	if o := r.objects[id]; o != nil {
		o.EmbeddingPending = pending
	}
	return nil
}

func (r *memObjectRepo) SetNeedsReview(_ context.Context, id string, needs bool) error {
	if o := r.objects[id]; o != nil {
		o.NeedsReview = needs
	}
	return nil
}

func (r *memObjectRepo) Tombstone(_ context.Context, id string) error {
	if o := r.objects[id]; o != nil {
		o.Tombstoned = true
	}
	return nil
}

type memEdgeRepo struct {
	edges map[string]*entity.Edge
}

func newMemEdgeRepo() *memEdgeRepo {
	return &memEdgeRepo{edges: make(map[string]*entity.Edge)}
}

func edgeKey(srcID, dstID string, kind entity.EdgeKind) string {
	return srcID + "|" + dstID + "|" + string(kind)
}

func (r *memEdgeRepo) Upsert(_ context.Context, edge *entity.Edge) error {
	cp := *edge
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	r.edges[edgeKey(cp.SrcID, cp.DstID, cp.Kind)] = &cp
	return nil
}

func (r *memEdgeRepo) Get(_ context.Context, srcID, dstID string, kind entity.EdgeKind) (*entity.Edge, error) {
	return r.edges[edgeKey(srcID, dstID, kind)], nil
}

func (r *memEdgeRepo) NeighborIDs(_ context.Context, objectID string) ([]string, error) {
	seen := make(map[string]bool)
	for _, e := range r.edges {
		if e.SrcID == objectID {
			seen[e.DstID] = true
		}
		if e.DstID == objectID {
			seen[e.SrcID] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *memEdgeRepo) NeighborIDsBatch(ctx context.Context, objectIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(objectIDs))
	for _, id := range objectIDs {
		neighbors, _ := r.NeighborIDs(ctx, id)
		if len(neighbors) > 0 {
			out[id] = neighbors
		}
	}
	return out, nil
}

func (r *memEdgeRepo) Degree(ctx context.Context, objectID string) (int, error) {
	neighbors, _ := r.NeighborIDs(ctx, objectID)
	return len(neighbors), nil
}

func (r *memEdgeRepo) ListBySrc(_ context.Context, objectID string) ([]*entity.Edge, error) {
	var out []*entity.Edge
	for _, e := range r.edges {
		if e.SrcID == objectID || e.DstID == objectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memEdgeRepo) RecentEdges(_ context.Context, since time.Time, limit int) ([]*entity.Edge, error) {
	var out []*entity.Edge
	for _, e := range r.edges {
		if e.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memEdgeRepo) DeleteByObject(_ context.Context, objectID string) error {
	for k, e := range r.edges {
		if e.SrcID == objectID || e.DstID == objectID {
			delete(r.edges, k)
		}
	}
	return nil
}

func (r *memEdgeRepo) snapshot() map[string]*entity.Edge {
	cp := make(map[string]*entity.Edge, len(r.edges))
	for k, v := range r.edges {
		cp[k] = v
	}
	return cp
}

type memInsightRepo struct {
	insights []*entity.Insight
}

func (r *memInsightRepo) Create(_ context.Context, ins *entity.Insight) error {
	cp := *ins
	if cp.EmittedAt.IsZero() {
		cp.EmittedAt = time.Now()
	}
	r.insights = append(r.insights, &cp)
	return nil
}

func (r *memInsightRepo) GetByID(_ context.Context, id string) (*entity.Insight, error) {
	for _, ins := range r.insights {
		if ins.ID == id {
			return ins, nil
		}
	}
	return nil, nil
}

func (r *memInsightRepo) UpdateStatus(_ context.Context, id string, status entity.InsightStatus) error {
	for _, ins := range r.insights {
		if ins.ID == id {
			ins.Status = status
			return nil
		}
	}
	return fmt.Errorf("insight %s not found", id)
}

func (r *memInsightRepo) List(_ context.Context, _ *repository.InsightFilter, p repository.Pagination) (*repository.PagedResult[*entity.Insight], error) {
	return repository.NewPagedResult(r.insights, int64(len(r.insights)), p), nil
}

func (r *memInsightRepo) LatestInCooldown(_ context.Context, clusterID string, typ entity.InsightType, window time.Duration) (*entity.Insight, error) {
	cutoff := time.Now().Add(-window)
	for i := len(r.insights) - 1; i >= 0; i-- {
		ins := r.insights[i]
		if ins.ClusterID != clusterID || ins.Type != typ || ins.Status.Dismissed() {
			continue
		}
		if ins.EmittedAt.After(cutoff) {
			return ins, nil
		}
	}
	return nil, nil
}

func (r *memInsightRepo) CountBySourceKeySince(_ context.Context, sourceKey string, since time.Time) (int, error) {
	count := 0
	for _, ins := range r.insights {
		if ins.SourceKey == sourceKey && !ins.EmittedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memInsightRepo) snapshot() []*entity.Insight {
	return append([]*entity.Insight(nil), r.insights...)
}

type memWeightRepo struct {
	profile *entity.WeightProfile
	err     error
}

func (r *memWeightRepo) Create(_ context.Context, p *entity.WeightProfile) error {
	r.profile = p
	return nil
}

func (r *memWeightRepo) Latest(_ context.Context, _ string) (*entity.WeightProfile, error) {
	return r.profile, r.err
}

func (r *memWeightRepo) GetByVersion(_ context.Context, _ string, _ int) (*entity.WeightProfile, error) {
	return r.profile, nil
}

func (r *memWeightRepo) ListVersions(_ context.Context, _ string) ([]*entity.WeightProfile, error) {
	if r.profile == nil {
		return nil, nil
	}
	return []*entity.WeightProfile{r.profile}, nil
}

type memActionRepo struct {
	actions []*entity.UserAction
}

func (r *memActionRepo) Create(_ context.Context, a *entity.UserAction) error {
	r.actions = append(r.actions, a)
	return nil
}

func (r *memActionRepo) ListByInsight(_ context.Context, insightID string) ([]*entity.UserAction, error) {
	var out []*entity.UserAction
	for _, a := range r.actions {
		if a.InsightID == insightID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memActionRepo) ListSince(_ context.Context, _ string, _ time.Time) ([]*entity.UserAction, error) {
	return r.actions, nil
}

func (r *memActionRepo) CountSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return len(r.actions), nil
}

// memTx 模拟事务语义：回调报错时恢复边与洞见两个存储的快照。
// 流水线里发生在事务边界之外的写入不受快照保护，能被测试察觉。
type memTx struct {
	edges    *memEdgeRepo
	insights *memInsightRepo
}

func (m *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	edgeSnap := m.edges.snapshot()
	insSnap := m.insights.snapshot()
	if err := fn(ctx); err != nil {
		m.edges.edges = edgeSnap
		m.insights.insights = insSnap
		return err
	}
	return nil
}

type memVectorStore struct {
	// results 按锚点 ID 返回近邻
	results    map[string][]*milvus.SearchResult
	upserted   []*milvus.EvidenceVector
	tombstoned []string
}

func (v *memVectorStore) UpsertVector(_ context.Context, vec *milvus.EvidenceVector) error {
	v.upserted = append(v.upserted, vec)
	return nil
}

func (v *memVectorStore) SearchNeighbors(_ context.Context, params *milvus.SearchParams) ([]*milvus.SearchResult, error) {
	return v.results[params.ExcludeID], nil
}

func (v *memVectorStore) MarkTombstoned(_ context.Context, objectID string) error {
	v.tombstoned = append(v.tombstoned, objectID)
	return nil
}

type memEmbedder struct{}

func (memEmbedder) EmbedOne(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type memLocker struct {
	acquired bool
	extendOK bool
	released int
}

func (l *memLocker) Acquire(_ context.Context, _ string) (string, bool, error) {
	return "token", l.acquired, nil
}

func (l *memLocker) Extend(_ context.Context, _, _ string) (bool, error) {
	return l.extendOK, nil
}

func (l *memLocker) Release(_ context.Context, _, _ string) error {
	l.released++
	return nil
}

type memCooldown struct {
	marked map[string]time.Duration
}

func newMemCooldown() *memCooldown {
	return &memCooldown{marked: make(map[string]time.Duration)}
}

func (c *memCooldown) Active(_ context.Context, clusterID, insightType string) (bool, error) {
	_, ok := c.marked[clusterID+"|"+insightType]
	return ok, nil
}

func (c *memCooldown) Mark(_ context.Context, clusterID, insightType string, window time.Duration) error {
	c.marked[clusterID+"|"+insightType] = window
	return nil
}

func (c *memCooldown) Clear(_ context.Context, clusterID, insightType string) error {
	delete(c.marked, clusterID+"|"+insightType)
	return nil
}

type memTerms struct{}

func (memTerms) Observe(_ context.Context, _ []string) error { return nil }

func (memTerms) ObservePair(_ context.Context, _ []string) error { return nil }

type stubStats struct {
	pmi float64
}

func (s stubStats) PMI(_ context.Context, _, _ []string, _, _ float64) (float64, error) {
	return s.pmi, nil
}

type memBus struct {
	events []interface{}
}

func (b *memBus) Publish(_ context.Context, event interface{}) error {
	b.events = append(b.events, event)
	return nil
}

type memCache struct {
	invalidations int
}

func (c *memCache) GetOrLoadSafe(_ context.Context, _ string, _ time.Duration, loader func() (interface{}, error)) ([]byte, error) {
	v, err := loader()
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (c *memCache) InvalidateInsightList(_ context.Context) error {
	c.invalidations++
	return nil
}

// ---- 流水线夹具 ----

type pipelineFixture struct {
	objects  *memObjectRepo
	edges    *memEdgeRepo
	insights *memInsightRepo
	weights  *memWeightRepo
	vectors  *memVectorStore
	cooldown *memCooldown
	locker   *memLocker
	bus      *memBus
	cache    *memCache
	cfg      *config.EngineConfig
	svc      *UpsertService
}

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		TopK:                  8,
		RRFConstant:           60,
		RecencyHalfLife:       168 * time.Hour,
		PMIFloor:              -2,
		PMICeil:               2,
		MinorPairThreshold:    0.015,
		ClusterWindow:         7 * 24 * time.Hour,
		ClusterLiftBoost:      0.1,
		ClusterLiftPercentile: 0.9,
		InsightCooldown:       24 * time.Hour,
		SourceCooldown:        6 * time.Hour,
		BundleMomentumDays:    3,
	}
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		objects:  newMemObjectRepo(),
		edges:    newMemEdgeRepo(),
		insights: &memInsightRepo{},
		weights:  &memWeightRepo{},
		vectors:  &memVectorStore{results: make(map[string][]*milvus.SearchResult)},
		cooldown: newMemCooldown(),
		locker:   &memLocker{acquired: true, extendOK: true},
		bus:      &memBus{},
		cache:    &memCache{},
		cfg:      testEngineConfig(),
	}
	tx := &memTx{edges: f.edges, insights: f.insights}
	graphSvc := graph.NewService(f.edges)
	features := feature.NewComputer(stubStats{pmi: 1}, f.cfg)

	f.svc = NewUpsertService(
		f.objects, f.edges, f.insights, f.weights, tx,
		f.vectors, memEmbedder{}, graphSvc, features, memTerms{},
		f.locker, f.cooldown, f.bus, f.cache, f.cfg,
	)
	return f
}

// seedPair 种一对强关联对象：锚点与候选共享一个已入图的邻居，
// 图信号（Adamic-Adar、聚类提升）与语义信号同时在线。
func (f *pipelineFixture) seedPair(anchor, cand *entity.Object) {
	f.objects.objects[anchor.ID] = anchor
	f.objects.objects[cand.ID] = cand

	hub := &entity.Object{
		ID:          "hub-" + anchor.ID,
		ObjectType:  entity.ObjectTypeNote,
		Title:       "hub",
		Body:        "shared neighbor",
		PublishedAt: anchor.PublishedAt,
	}
	f.objects.objects[hub.ID] = hub

	for _, pair := range [][2]string{{anchor.ID, hub.ID}, {cand.ID, hub.ID}} {
		src, dst := pair[0], pair[1]
		if src > dst {
			src, dst = dst, src
		}
		f.edges.edges[edgeKey(src, dst, entity.EdgeKindSemanticSim)] = &entity.Edge{
			ID: src + "-" + dst, SrcID: src, DstID: dst,
			Kind: entity.EdgeKindSemanticSim, Weight: 0.5,
			Features:  entity.EdgeFeatures{Semantic: 0.5},
			UpdatedAt: time.Now().Add(-time.Hour),
		}
	}

	f.vectors.results[anchor.ID] = []*milvus.SearchResult{
		{ID: cand.ID, Score: 0.99, SourceID: cand.SourceID, Modality: cand.Modality},
	}
}

func convergentPair() (*entity.Object, *entity.Object) {
	now := time.Now()
	anchor := &entity.Object{
		ID:          "obj-a",
		ObjectType:  entity.ObjectTypePassage,
		Title:       "exodus parallels",
		Body:        "wilderness narrative structure",
		Tags:        []string{"exodus"},
		Modality:    "transcript",
		SourceID:    "src-1",
		Stability:   1,
		PublishedAt: now,
	}
	cand := &entity.Object{
		ID:          "obj-b",
		ObjectType:  entity.ObjectTypeNote,
		Title:       "exodus motifs",
		Body:        "wilderness typology notes",
		Tags:        []string{"exodus"},
		Modality:    "document",
		SourceID:    "src-2",
		Stability:   1,
		PublishedAt: now.Add(-24 * time.Hour),
	}
	return anchor, cand
}

// ---- 场景测试 ----

func TestProcessObjectConvergence(t *testing.T) {
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	anchor.EmbeddingPending = true
	f.seedPair(anchor, cand)

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	require.Len(t, f.insights.insights, 1)
	ins := f.insights.insights[0]
	assert.Equal(t, entity.InsightTypeConvergence, ins.Type)
	assert.Equal(t, fusion.ClusterKey(anchor.ID, cand.ID), ins.ClusterID)
	assert.Equal(t, fusion.SourceKey("src-1", "src-2"), ins.SourceKey)
	assert.Greater(t, ins.Score, 0.0)
	require.NotEmpty(t, ins.Payload.Members)
	assert.Equal(t, cand.ID, ins.Payload.Members[0].ObjectID)

	// 跨期性：相差一天、半衰期七天
	assert.InDelta(t, 0.8669, ins.Payload.Explainer.Recency, 1e-3)

	// 挂起的向量要先落库再参与召回
	require.Len(t, f.vectors.upserted, 1)
	assert.Equal(t, anchor.ID, f.vectors.upserted[0].ID)
	assert.False(t, f.objects.objects[anchor.ID].EmbeddingPending)

	// 发射后的副作用：冷却标记、列表缓存失效、事件广播
	active, _ := f.cooldown.Active(context.Background(), ins.ClusterID, string(ins.Type))
	assert.True(t, active)
	assert.Equal(t, 1, f.cache.invalidations)
	require.Len(t, f.bus.events, 1)

	// 锁必须归还
	assert.Equal(t, 1, f.locker.released)
}

func TestProcessObjectDiversityGate(t *testing.T) {
	// 同源同模态：配对分再高也不发射，且不降级成线索
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	cand.SourceID = anchor.SourceID
	cand.Modality = anchor.Modality
	f.seedPair(anchor, cand)

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	assert.Empty(t, f.insights.insights)
	assert.Empty(t, f.bus.events)
}

func TestProcessObjectCollision(t *testing.T) {
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	f.seedPair(anchor, cand)

	// 规范序端点上的显式矛盾边
	src, dst := anchor.ID, cand.ID
	if src > dst {
		src, dst = dst, src
	}
	f.edges.edges[edgeKey(src, dst, entity.EdgeKindContradiction)] = &entity.Edge{
		ID: "contra", SrcID: src, DstID: dst,
		Kind: entity.EdgeKindContradiction, Weight: 1,
		UpdatedAt: time.Now().Add(-time.Hour),
	}

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	require.Len(t, f.insights.insights, 1)
	assert.Equal(t, entity.InsightTypeCollision, f.insights.insights[0].Type)
}

func TestProcessObjectColdIndex(t *testing.T) {
	// 冷索引：没有可比对的近邻时流水线安静结束
	f := newPipelineFixture()
	anchor, _ := convergentPair()
	f.objects.objects[anchor.ID] = anchor

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	assert.Empty(t, f.insights.insights)
	assert.Empty(t, f.edges.edges)
}

func TestProcessObjectIdempotent(t *testing.T) {
	// 消息至少投递一次：同一对象重复 upsert 只发射一条洞见
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	f.seedPair(anchor, cand)

	ctx := context.Background()
	require.NoError(t, f.svc.ProcessObject(ctx, anchor.ID))
	require.NoError(t, f.svc.ProcessObject(ctx, anchor.ID))

	assert.Len(t, f.insights.insights, 1)
	assert.Len(t, f.bus.events, 1)
}

func TestProcessObjectCooldownInRepo(t *testing.T) {
	// Redis 冷却缓存丢失时，Postgres 里的权威判定仍然兜底
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	f.seedPair(anchor, cand)

	ctx := context.Background()
	require.NoError(t, f.svc.ProcessObject(ctx, anchor.ID))
	f.cooldown.marked = map[string]time.Duration{}
	require.NoError(t, f.svc.ProcessObject(ctx, anchor.ID))

	assert.Len(t, f.insights.insights, 1)
}

func TestProcessObjectSourceCooldown(t *testing.T) {
	// 来源级冷却用规范化来源键，空来源归一为 "-" 后依然命中
	f := newPipelineFixture()

	now := time.Now()
	first := &entity.Object{
		ID: "obj-c", ObjectType: entity.ObjectTypePassage,
		Title: "covenant language", Body: "treaty form parallels",
		Tags: []string{"covenant"}, Modality: "transcript",
		Stability: 1, PublishedAt: now,
	}
	firstCand := &entity.Object{
		ID: "obj-d", ObjectType: entity.ObjectTypeNote,
		Title: "covenant notes", Body: "treaty structure",
		Tags: []string{"covenant"}, Modality: "document",
		Stability: 1, PublishedAt: now.Add(-24 * time.Hour),
	}
	f.seedPair(first, firstCand)

	second := &entity.Object{
		ID: "obj-e", ObjectType: entity.ObjectTypePassage,
		Title: "covenant forms", Body: "suzerainty parallels",
		Tags: []string{"covenant"}, Modality: "transcript",
		Stability: 1, PublishedAt: now,
	}
	secondCand := &entity.Object{
		ID: "obj-f", ObjectType: entity.ObjectTypeNote,
		Title: "more covenant notes", Body: "oath formulas",
		Tags: []string{"covenant"}, Modality: "document",
		Stability: 1, PublishedAt: now.Add(-24 * time.Hour),
	}
	f.seedPair(second, secondCand)

	ctx := context.Background()
	require.NoError(t, f.svc.ProcessObject(ctx, first.ID))
	require.Len(t, f.insights.insights, 1)
	assert.Equal(t, "-|-", f.insights.insights[0].SourceKey)

	// 不同集群、同一（空）来源对：被来源冷却拦下
	require.NoError(t, f.svc.ProcessObject(ctx, second.ID))
	assert.Len(t, f.insights.insights, 1)
}

func TestProcessObjectRollsBackOnFailure(t *testing.T) {
	// 融合阶段失败时整个 upsert 周期回滚，不留半截的图
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	f.seedPair(anchor, cand)
	f.weights.err = fmt.Errorf("weight store unavailable")

	seeded := len(f.edges.edges)
	err := f.svc.ProcessObject(context.Background(), anchor.ID)

	require.Error(t, err)
	assert.Len(t, f.edges.edges, seeded, "失败周期不应留下新边")
	assert.Empty(t, f.insights.insights)
	assert.Empty(t, f.bus.events)
	assert.Zero(t, f.cache.invalidations)
}

func TestProcessObjectSkipsPaths(t *testing.T) {
	t.Run("对象已硬删除", func(t *testing.T) {
		f := newPipelineFixture()
		require.NoError(t, f.svc.ProcessObject(context.Background(), "ghost"))
		assert.Empty(t, f.insights.insights)
	})

	t.Run("锁被别的 worker 持有", func(t *testing.T) {
		f := newPipelineFixture()
		anchor, cand := convergentPair()
		f.seedPair(anchor, cand)
		f.locker.acquired = false

		err := f.svc.ProcessObject(context.Background(), anchor.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "locked")
	})

	t.Run("无正文对象转人工复核", func(t *testing.T) {
		f := newPipelineFixture()
		empty := &entity.Object{ID: "blank", ObjectType: entity.ObjectTypeNote, PublishedAt: time.Now()}
		f.objects.objects[empty.ID] = empty

		require.NoError(t, f.svc.ProcessObject(context.Background(), empty.ID))
		assert.True(t, f.objects.objects[empty.ID].NeedsReview)
	})

	t.Run("墓碑对象清理向量与边", func(t *testing.T) {
		f := newPipelineFixture()
		anchor, cand := convergentPair()
		f.seedPair(anchor, cand)
		anchor.Tombstoned = true

		require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))
		assert.Contains(t, f.vectors.tombstoned, anchor.ID)
		for _, e := range f.edges.edges {
			assert.NotEqual(t, anchor.ID, e.SrcID)
			assert.NotEqual(t, anchor.ID, e.DstID)
		}
	})
}

func TestProcessObjectWritesEdges(t *testing.T) {
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	f.seedPair(anchor, cand)

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	src, dst := anchor.ID, cand.ID
	if src > dst {
		src, dst = dst, src
	}
	edge := f.edges.edges[edgeKey(src, dst, entity.EdgeKindSemanticSim)]
	require.NotNil(t, edge, "锚点与候选之间应有语义边")
	assert.Greater(t, edge.Weight, 0.0)
	assert.Equal(t, 1.0, edge.Features.SourceDiversity)
}

func TestProcessObjectSuppressedNotLead(t *testing.T) {
	// 压下的汇聚不应以任何其他类型出现
	f := newPipelineFixture()
	anchor, cand := convergentPair()
	cand.SourceID = anchor.SourceID
	cand.Modality = anchor.Modality
	f.seedPair(anchor, cand)

	require.NoError(t, f.svc.ProcessObject(context.Background(), anchor.ID))

	for _, ins := range f.insights.insights {
		assert.NotEqual(t, entity.InsightTypeLead, ins.Type)
	}
	assert.Empty(t, f.insights.insights)
}
