package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

func TestFuseRanks(t *testing.T) {
	t.Run("单信号排名决定 RRF", func(t *testing.T) {
		candidates := []*Candidate{
			{ObjectID: "a", Features: entity.EdgeFeatures{Semantic: 0.9}},
			{ObjectID: "b", Features: entity.EdgeFeatures{Semantic: 0.5}},
			{ObjectID: "c", Features: entity.EdgeFeatures{Semantic: 0.1}},
		}

		FuseRanks(candidates, 60)

		assert.Greater(t, candidates[0].RRF, candidates[1].RRF)
		assert.Greater(t, candidates[1].RRF, candidates[2].RRF)
	})

	t.Run("零值信号不参与排名", func(t *testing.T) {
		candidates := []*Candidate{
			{ObjectID: "a", Features: entity.EdgeFeatures{Semantic: 0.9}},
			{ObjectID: "b", Features: entity.EdgeFeatures{}},
		}

		FuseRanks(candidates, 60)

		assert.Greater(t, candidates[0].RRF, 0.0)
		assert.Zero(t, candidates[1].RRF)
	})

	t.Run("多信号累加", func(t *testing.T) {
		// b 在语义上弱，但图信号都领先
		candidates := []*Candidate{
			{ObjectID: "a", Features: entity.EdgeFeatures{Semantic: 0.9}},
			{ObjectID: "b", Features: entity.EdgeFeatures{
				Semantic:        0.5,
				AdamicAdar:      2.0,
				PMI:             1.5,
				ClusteringDelta: 0.2,
			}},
		}

		FuseRanks(candidates, 60)

		assert.Greater(t, candidates[1].RRF, candidates[0].RRF)
	})

	t.Run("默认 k 值", func(t *testing.T) {
		candidates := []*Candidate{
			{ObjectID: "a", Features: entity.EdgeFeatures{Semantic: 0.9}},
		}

		FuseRanks(candidates, 0)

		// k 缺省 60，rank 1 的贡献是 1/61
		assert.InDelta(t, 1.0/61.0, candidates[0].RRF, 1e-9)
	})
}

func TestScoreAll(t *testing.T) {
	profile := entity.DefaultWeightProfile("study")

	t.Run("分数等于 RRF 乘以权重乘子", func(t *testing.T) {
		c := &Candidate{
			ObjectID: "a",
			RRF:      0.1,
			Features: entity.EdgeFeatures{JaccardTags: 1, SourceDiversity: 1},
		}

		ScoreAll([]*Candidate{c}, profile)

		expected := 0.1 * profile.Multiplier(c.Features)
		assert.InDelta(t, expected, c.Score, 1e-9)
	})

	t.Run("多样性单调提升分数", func(t *testing.T) {
		low := &Candidate{RRF: 0.1, Features: entity.EdgeFeatures{SourceDiversity: 0}}
		high := &Candidate{RRF: 0.1, Features: entity.EdgeFeatures{SourceDiversity: 1}}

		ScoreAll([]*Candidate{low, high}, profile)

		assert.Greater(t, high.Score, low.Score)
	})
}

func TestTopByScore(t *testing.T) {
	candidates := []*Candidate{
		{ObjectID: "low", Score: 0.01},
		{ObjectID: "high", Score: 0.09},
		{ObjectID: "mid", Score: 0.05},
	}

	sorted := TopByScore(candidates)

	require.Len(t, sorted, 3)
	assert.Equal(t, "high", sorted[0].ObjectID)
	assert.Equal(t, "mid", sorted[1].ObjectID)
	assert.Equal(t, "low", sorted[2].ObjectID)

	// 原切片不被修改
	assert.Equal(t, "low", candidates[0].ObjectID)
}

func TestSupportingPairs(t *testing.T) {
	candidates := []*Candidate{
		{ObjectID: "a", Score: 0.05},
		{ObjectID: "b", Score: 0.02},
		{ObjectID: "c", Score: 0.015},
		{ObjectID: "d", Score: 0.001},
	}

	assert.Equal(t, 3, SupportingPairs(candidates, 0.015))
	assert.Equal(t, 1, SupportingPairs(candidates, 0.03))
	assert.Equal(t, 0, SupportingPairs(nil, 0.015))
}

func TestClusterLift(t *testing.T) {
	t.Run("两条以上支撑对触发加成", func(t *testing.T) {
		assert.InDelta(t, 0.033, ClusterLift(0.03, 2, 0.1), 1e-9)
		assert.InDelta(t, 0.033, ClusterLift(0.03, 5, 0.1), 1e-9)
	})

	t.Run("单对孤证不加成", func(t *testing.T) {
		assert.Equal(t, 0.03, ClusterLift(0.03, 1, 0.1))
		assert.Equal(t, 0.03, ClusterLift(0.03, 0, 0.1))
	})

	t.Run("加成关闭时原样返回", func(t *testing.T) {
		assert.Equal(t, 0.03, ClusterLift(0.03, 3, 0))
	})
}
