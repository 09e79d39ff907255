// Package fusion 多信号融合评分与洞见分类
package fusion

import (
	"sort"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// Candidate 参与融合的候选对
type Candidate struct {
	ObjectID string
	Features entity.EdgeFeatures
	// RRF 融合排名得分，FuseRanks 填充
	RRF float64
	// Score 最终配对分，ScoreAll 填充
	Score float64
}

// FuseRanks 对候选按四路信号分别排名后做 Reciprocal Rank Fusion：
// RRF(c) = Σ 1/(k + rank_i(c))。信号值为 0 的候选不进入该信号的排名，
// 缺失信号自然贡献 0。
func FuseRanks(candidates []*Candidate, k float64) {
	if k <= 0 {
		k = 60
	}

	signals := []func(*Candidate) float64{
		func(c *Candidate) float64 { return c.Features.Semantic },
		func(c *Candidate) float64 { return c.Features.AdamicAdar },
		func(c *Candidate) float64 { return c.Features.PMI },
		func(c *Candidate) float64 { return c.Features.ClusteringDelta },
	}

	for _, c := range candidates {
		c.RRF = 0
	}

	for _, signal := range signals {
		ranked := make([]*Candidate, 0, len(candidates))
		for _, c := range candidates {
			if signal(c) > 0 {
				ranked = append(ranked, c)
			}
		}

		sort.SliceStable(ranked, func(i, j int) bool {
			return signal(ranked[i]) > signal(ranked[j])
		})

		for i, c := range ranked {
			c.RRF += 1 / (k + float64(i+1))
		}
	}
}

// ScoreAll 用权重档案把 RRF 转换为最终配对分：
// score = RRF * (w0 + w1*jaccard + w2*modality + w3*source + w4*recency + w5*stability)
func ScoreAll(candidates []*Candidate, profile *entity.WeightProfile) {
	for _, c := range candidates {
		c.Score = c.RRF * profile.Multiplier(c.Features)
	}
}

// TopByScore 返回按配对分降序排序的候选
func TopByScore(candidates []*Candidate) []*Candidate {
	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// SupportingPairs 统计配对分不低于次级阈值的候选数
func SupportingPairs(candidates []*Candidate, minor float64) int {
	n := 0
	for _, c := range candidates {
		if c.Score >= minor {
			n++
		}
	}
	return n
}

// ClusterLift 集群级加成：滚动窗口内至少两条配对超过次级阈值时，
// 对象级最高分按 boost 比例上浮。单对孤证不加成。
func ClusterLift(score float64, supporting int, boost float64) float64 {
	if supporting >= 2 && boost > 0 {
		return score * (1 + boost)
	}
	return score
}
