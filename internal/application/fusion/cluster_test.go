package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterKey(t *testing.T) {
	// 键与端点顺序无关
	assert.Equal(t, ClusterKey("a", "b"), ClusterKey("b", "a"))
	assert.Equal(t, "a|b", ClusterKey("b", "a"))
}

func TestSourceKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"规范序", "src2", "src1", "src1|src2"},
		{"双空", "", "", "-|-"},
		{"单空", "src1", "", "-|src1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceKey(tt.a, tt.b))
			assert.Equal(t, SourceKey(tt.a, tt.b), SourceKey(tt.b, tt.a))
		})
	}
}

func TestClusterOf(t *testing.T) {
	a, b := ClusterOf("x|y")
	assert.Equal(t, "x", a)
	assert.Equal(t, "y", b)

	a, b = ClusterOf("solo")
	assert.Equal(t, "solo", a)
	assert.Empty(t, b)
}

func TestPercentile(t *testing.T) {
	samples := []float64{0.1, 0.5, 0.3, 0.9, 0.7}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"最小", 0, 0.1},
		{"最大", 1, 0.9},
		{"中位", 0.5, 0.5},
		{"越界裁剪", 1.5, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(samples, tt.p), 1e-9)
		})
	}

	t.Run("空样本", func(t *testing.T) {
		assert.Zero(t, Percentile(nil, 0.75))
	})

	t.Run("原样本不被排序", func(t *testing.T) {
		Percentile(samples, 0.5)
		assert.Equal(t, []float64{0.1, 0.5, 0.3, 0.9, 0.7}, samples)
	})
}
