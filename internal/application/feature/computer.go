// Package feature 计算候选对的信号特征
package feature

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/config"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

var tracer = otel.Tracer("feature")

// PairStatter 提供词项对的 PMI 统计
type PairStatter interface {
	PMI(ctx context.Context, aTerms, bTerms []string, floor, ceil float64) (float64, error)
}

// Computer 特征计算器
type Computer struct {
	stats PairStatter
	cfg   *config.EngineConfig
}

// NewComputer 创建特征计算器
func NewComputer(stats PairStatter, cfg *config.EngineConfig) *Computer {
	return &Computer{
		stats: stats,
		cfg:   cfg,
	}
}

// PairInput 特征计算输入
type PairInput struct {
	Anchor    *entity.Object
	Candidate *entity.Object
	// Semantic 向量检索给出的余弦相似度
	Semantic float64
	// Neighborhood 锚点邻域视图
	Neighborhood *graph.Neighborhood
	// CandidateNeighbors 候选的一跳邻居集合
	CandidateNeighbors map[string]bool
}

// Compute 计算一对对象的全部特征。缺失的信号显式置 0，
// 融合阶段不需要区分"没有"与"为零"。
func (c *Computer) Compute(ctx context.Context, in *PairInput) (entity.EdgeFeatures, error) {
	ctx, span := tracer.Start(ctx, "feature.Compute",
		trace.WithAttributes(
			attribute.String("anchor_id", in.Anchor.ID),
			attribute.String("candidate_id", in.Candidate.ID),
		))
	defer span.End()

	f := entity.EdgeFeatures{
		Semantic: clamp(in.Semantic, 0, 1),
	}

	if in.Neighborhood != nil {
		f.AdamicAdar = in.Neighborhood.AdamicAdarPair(in.Candidate.ID, in.CandidateNeighbors)
		f.ClusteringDelta = in.Neighborhood.ClusteringDelta(in.Candidate.ID, in.CandidateNeighbors)
	}

	f.JaccardTags = JaccardTags(in.Anchor.Tags, in.Candidate.Tags)
	f.ModalityDiversity = diversity(in.Anchor.Modality, in.Candidate.Modality)
	f.SourceDiversity = diversity(in.Anchor.SourceID, in.Candidate.SourceID)
	f.Recency = c.pairRecency(in.Anchor.PublishedAt, in.Candidate.PublishedAt)
	f.Stability = math.Min(in.Anchor.Stability, in.Candidate.Stability)

	pmi, err := c.stats.PMI(ctx, Tokenize(in.Anchor), Tokenize(in.Candidate), c.cfg.PMIFloor, c.cfg.PMICeil)
	if err != nil {
		// 统计不可用时 PMI 退化为中性信号
		span.RecordError(err)
		pmi = 0
	}
	f.PMI = pmi

	// 异常值钳到中性 0，融合阶段无需处理 NaN/Inf
	for _, p := range []*float64{
		&f.Semantic, &f.AdamicAdar, &f.ClusteringDelta, &f.JaccardTags,
		&f.PMI, &f.ModalityDiversity, &f.SourceDiversity, &f.Recency, &f.Stability,
	} {
		if math.IsNaN(*p) || math.IsInf(*p, 0) {
			*p = 0
		}
	}

	return f, nil
}

// JaccardTags 计算标签 Jaccard 相似度，双方皆空时为 0
func JaccardTags(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}

	inter := 0
	bSet := make(map[string]bool, len(b))
	for _, t := range b {
		if bSet[t] {
			continue
		}
		bSet[t] = true
		if set[t] {
			inter++
		}
	}

	union := len(set) + len(bSet) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// pairRecency 时间新鲜度：exp(-Δt/τ)，Δt 取两端发表时间的绝对间隔。
// 度量的是两件证据彼此的同期性，与它们距今多久无关，
// 陈年语料里同期出现的一对不会被惩罚。
func (c *Computer) pairRecency(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	tau := c.cfg.RecencyHalfLife
	if tau <= 0 {
		tau = 168 * time.Hour
	}
	return math.Exp(-gap.Seconds() / tau.Seconds())
}

// diversity 二值多样性：双方非空且不同为 1，相同为 0，信息不全取 0.5
func diversity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.5
	}
	if a != b {
		return 1
	}
	return 0
}
