package graph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestAdamicAdar(t *testing.T) {
	degrees := map[string]int{"z1": 4, "z2": 10, "lone": 1}
	degree := func(id string) int { return degrees[id] }

	tests := []struct {
		name string
		a, b map[string]bool
		want float64
	}{
		{
			name: "无共同邻居",
			a:    set("x"),
			b:    set("y"),
			want: 0,
		},
		{
			name: "单个共同邻居",
			a:    set("z1", "x"),
			b:    set("z1", "y"),
			want: 1 / math.Log(4),
		},
		{
			name: "低度邻居贡献大于高度邻居",
			a:    set("z1", "z2"),
			b:    set("z1", "z2"),
			want: 1/math.Log(4) + 1/math.Log(10),
		},
		{
			name: "度数不足时按 2 计避免除零",
			a:    set("lone"),
			b:    set("lone"),
			want: 1 / math.Log(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AdamicAdar(tt.a, tt.b, degree), 1e-9)
			// 对称性
			assert.InDelta(t, tt.want, AdamicAdar(tt.b, tt.a, degree), 1e-9)
		})
	}
}

func TestLocalClustering(t *testing.T) {
	edges := map[string]map[string]bool{
		"a": set("b"),
		"b": set("a", "c"),
		"c": set("b"),
	}
	adjacent := func(x, y string) bool {
		return edges[x][y] || edges[y][x]
	}

	t.Run("邻居不足两个返回零", func(t *testing.T) {
		assert.Zero(t, LocalClustering(set("a"), adjacent))
		assert.Zero(t, LocalClustering(nil, adjacent))
	})

	t.Run("三邻居两连边", func(t *testing.T) {
		// a-b 与 b-c 相连，a-c 不相连：2*2/(3*2) = 2/3
		got := LocalClustering(set("a", "b", "c"), adjacent)
		assert.InDelta(t, 2.0/3.0, got, 1e-9)
	})

	t.Run("完全图系数为一", func(t *testing.T) {
		all := func(_, _ string) bool { return true }
		assert.InDelta(t, 1.0, LocalClustering(set("a", "b", "c", "d"), all), 1e-9)
	})
}

func TestClusteringDelta(t *testing.T) {
	// 锚点 anchor 有邻居 n1、n2，二者互不相连
	nb := &Neighborhood{
		ObjectID:  "anchor",
		Neighbors: []string{"n1", "n2"},
		AdjSets: map[string]map[string]bool{
			"anchor": set("n1", "n2"),
			"n1":     set("anchor"),
			"n2":     set("anchor"),
		},
	}

	t.Run("候选连接既有邻居时增密", func(t *testing.T) {
		// cand 与 n1、n2 都相连：before=0，after=2*2/(3*2)=2/3
		delta := nb.ClusteringDelta("cand", set("n1", "n2"))
		assert.InDelta(t, 2.0/3.0, delta, 1e-9)
	})

	t.Run("孤立候选稀释邻域", func(t *testing.T) {
		delta := nb.ClusteringDelta("cand", set())
		assert.LessOrEqual(t, delta, 0.0)
	})
}

func TestNeighborSet(t *testing.T) {
	nb := &Neighborhood{AdjSets: map[string]map[string]bool{"a": set("b")}}
	assert.True(t, nb.NeighborSet("a")["b"])
	assert.Empty(t, nb.NeighborSet("missing"))
}
