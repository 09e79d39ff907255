package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmedlin87/Theoria-sub008/internal/config"
)

func TestJaccardTags(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"双方皆空", nil, nil, 0},
		{"一方为空", []string{"x"}, nil, 0},
		{"完全相同", []string{"x", "y"}, []string{"y", "x"}, 1},
		{"部分重叠", []string{"x", "y"}, []string{"y", "z"}, 1.0 / 3.0},
		{"无重叠", []string{"x"}, []string{"z"}, 0},
		{"重复标签去重", []string{"x", "x"}, []string{"x"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardTags(tt.a, tt.b), 1e-9)
		})
	}
}

func TestDiversity(t *testing.T) {
	assert.Equal(t, 0.5, diversity("", "text"))
	assert.Equal(t, 0.5, diversity("text", ""))
	assert.Equal(t, 1.0, diversity("text", "image"))
	assert.Equal(t, 0.0, diversity("text", "text"))
}

func TestPairRecency(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := &Computer{
		cfg: &config.EngineConfig{RecencyHalfLife: 168 * time.Hour},
	}

	t.Run("同时发表为一", func(t *testing.T) {
		assert.InDelta(t, 1.0, c.pairRecency(base, base), 1e-9)
	})

	t.Run("间隔一天约零点八七", func(t *testing.T) {
		got := c.pairRecency(base, base.Add(-24*time.Hour))
		assert.InDelta(t, math.Exp(-1.0/7.0), got, 1e-9)
		assert.InDelta(t, 0.87, got, 0.01)
	})

	t.Run("间隔与先后顺序无关", func(t *testing.T) {
		assert.Equal(t,
			c.pairRecency(base, base.Add(-24*time.Hour)),
			c.pairRecency(base.Add(-24*time.Hour), base),
		)
	})

	t.Run("同期的陈年对不受距今影响", func(t *testing.T) {
		old := base.Add(-90 * 24 * time.Hour)
		got := c.pairRecency(old, old.Add(24*time.Hour))
		assert.InDelta(t, math.Exp(-1.0/7.0), got, 1e-9)
	})

	t.Run("缺失发表时间为零", func(t *testing.T) {
		assert.Zero(t, c.pairRecency(time.Time{}, base))
		assert.Zero(t, c.pairRecency(base, time.Time{}))
	})
}
