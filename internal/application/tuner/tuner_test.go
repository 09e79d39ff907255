package tuner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-9)
	assert.Greater(t, sigmoid(3.0), 0.9)
	assert.Less(t, sigmoid(-3.0), 0.1)
	// 对称性
	assert.InDelta(t, 1, sigmoid(2)+sigmoid(-2), 1e-9)
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11, dot([]float64{1, 2, 3}, []float64{3, 1, 2}), 1e-9)
	assert.Zero(t, dot(nil, nil))
}

func TestFeatureVector(t *testing.T) {
	f := entity.EdgeFeatures{
		JaccardTags:       0.4,
		ModalityDiversity: 1,
		SourceDiversity:   0.5,
		Recency:           0.8,
		Stability:         0.6,
	}
	assert.Equal(t, []float64{1, 0.4, 1, 0.5, 0.8, 0.6}, featureVector(f))
}

func TestFitSeparableSamples(t *testing.T) {
	// 正例带高多样性、负例带低多样性：训练后多样性权重应高于初始
	positives := entity.EdgeFeatures{SourceDiversity: 1, ModalityDiversity: 1, Recency: 0.9}
	negatives := entity.EdgeFeatures{SourceDiversity: 0, ModalityDiversity: 0, Recency: 0.9}

	var samples []sample
	for i := 0; i < 20; i++ {
		samples = append(samples, sample{features: positives, label: 1})
		samples = append(samples, sample{features: negatives, label: 0})
	}

	init := entity.DefaultWeightProfile(entity.DefaultMode)
	trained := fit(samples, init)

	assert.Len(t, trained, 6)
	assert.Greater(t, trained[3], init.W3, "来源多样性权重应上升")
	assert.Greater(t, trained[2], init.W2, "模态多样性权重应上升")
}

func TestBlend(t *testing.T) {
	current := &entity.WeightProfile{
		Mode: entity.DefaultMode,
		W0:   1, W1: 1, W2: 1, W3: 1, W4: 1, W5: 1,
		TauConv: 0.035, TauCol: 0.030, TauLead: 0.020,
	}

	t.Run("线性混合", func(t *testing.T) {
		next := blend(current, []float64{0, 0, 0, 0, 0, 0})
		assert.InDelta(t, 0.7, next.W0, 1e-9)
		assert.InDelta(t, 0.7, next.W5, 1e-9)
	})

	t.Run("裁剪到非负", func(t *testing.T) {
		next := blend(current, []float64{-100, -100, -100, -100, -100, -100})
		assert.Zero(t, next.W0)
		assert.Zero(t, next.W3)
		assert.True(t, next.Valid())
	})

	t.Run("阈值与模式保留", func(t *testing.T) {
		next := blend(current, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5})
		assert.Equal(t, current.Mode, next.Mode)
		assert.Equal(t, current.TauConv, next.TauConv)
		assert.Equal(t, current.TauLead, next.TauLead)
	})

	t.Run("原档案不被修改", func(t *testing.T) {
		blend(current, []float64{0, 0, 0, 0, 0, 0})
		assert.Equal(t, 1.0, current.W0)
	})
}
