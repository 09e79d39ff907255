package insight

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmedlin87/Theoria-sub008/internal/application/graph"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

type bundlerFixture struct {
	objects  *memObjectRepo
	edges    *memEdgeRepo
	insights *memInsightRepo
	cooldown *memCooldown
	bus      *memBus
	bundler  *Bundler
}

func newBundlerFixture() *bundlerFixture {
	f := &bundlerFixture{
		objects:  newMemObjectRepo(),
		edges:    newMemEdgeRepo(),
		insights: &memInsightRepo{},
		cooldown: newMemCooldown(),
		bus:      &memBus{},
	}
	cfg := testEngineConfig()
	tx := &memTx{edges: f.edges, insights: f.insights}
	f.bundler = NewBundler(
		f.objects, f.edges, f.insights, tx,
		graph.NewService(f.edges), f.cooldown, f.bus, cfg,
	)
	return f
}

// seedMomentum 给锚点种下连续三天的强边，目标对象按给定来源分布
func (f *bundlerFixture) seedMomentum(anchorID string, sources []string) {
	now := time.Now()
	f.objects.objects[anchorID] = &entity.Object{
		ID: anchorID, ObjectType: entity.ObjectTypePassage,
		Title: "anchor", Body: "anchor body", PublishedAt: now,
	}
	for i, src := range sources {
		dstID := fmt.Sprintf("%s-dst-%d", anchorID, i)
		f.objects.objects[dstID] = &entity.Object{
			ID: dstID, ObjectType: entity.ObjectTypeNote,
			Title: "member", Body: "member body",
			SourceID: src, PublishedAt: now,
		}
		f.edges.edges[edgeKey(anchorID, dstID, entity.EdgeKindSemanticSim)] = &entity.Edge{
			ID: dstID + "-edge", SrcID: anchorID, DstID: dstID,
			Kind: entity.EdgeKindSemanticSim, Weight: 0.5,
			Features:  entity.EdgeFeatures{Semantic: 0.5},
			UpdatedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
}

func TestBundlerScan(t *testing.T) {
	t.Run("跨来源多日动量成束", func(t *testing.T) {
		f := newBundlerFixture()
		f.seedMomentum("anchor-1", []string{"src-1", "src-2", "src-3"})

		emitted, err := f.bundler.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, emitted)

		require.Len(t, f.insights.insights, 1)
		ins := f.insights.insights[0]
		assert.Equal(t, entity.InsightTypeBundle, ins.Type)
		assert.Equal(t, "anchor-1", ins.ClusterID)
		assert.Len(t, ins.Payload.Members, 3)
		require.Len(t, f.bus.events, 1)
	})

	t.Run("单一来源刷屏不成束", func(t *testing.T) {
		f := newBundlerFixture()
		f.seedMomentum("anchor-1", []string{"src-1", "src-1", "src-1"})

		emitted, err := f.bundler.Scan(context.Background())
		require.NoError(t, err)
		assert.Zero(t, emitted)
		assert.Empty(t, f.insights.insights)
	})

	t.Run("两个来源即满足跨来源要求", func(t *testing.T) {
		f := newBundlerFixture()
		f.seedMomentum("anchor-1", []string{"src-1", "src-1", "src-2"})

		emitted, err := f.bundler.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, emitted)
	})

	t.Run("天数不足不成束", func(t *testing.T) {
		f := newBundlerFixture()
		now := time.Now()
		f.objects.objects["anchor-2"] = &entity.Object{
			ID: "anchor-2", ObjectType: entity.ObjectTypePassage,
			Title: "anchor", Body: "body", PublishedAt: now,
		}
		// 三条边挤在同一天
		for i, src := range []string{"src-1", "src-2", "src-3"} {
			dstID := fmt.Sprintf("anchor-2-dst-%d", i)
			f.objects.objects[dstID] = &entity.Object{
				ID: dstID, ObjectType: entity.ObjectTypeNote,
				Title: "member", Body: "body", SourceID: src, PublishedAt: now,
			}
			f.edges.edges[edgeKey("anchor-2", dstID, entity.EdgeKindSemanticSim)] = &entity.Edge{
				ID: dstID + "-edge", SrcID: "anchor-2", DstID: dstID,
				Kind: entity.EdgeKindSemanticSim, Weight: 0.5,
				UpdatedAt: now,
			}
		}

		emitted, err := f.bundler.Scan(context.Background())
		require.NoError(t, err)
		assert.Zero(t, emitted)
	})

	t.Run("弱边不计入动量", func(t *testing.T) {
		f := newBundlerFixture()
		f.seedMomentum("anchor-1", []string{"src-1", "src-2", "src-3"})
		for _, e := range f.edges.edges {
			e.Weight = 0.001
		}

		emitted, err := f.bundler.Scan(context.Background())
		require.NoError(t, err)
		assert.Zero(t, emitted)
	})

	t.Run("冷却窗口内不重复成束", func(t *testing.T) {
		f := newBundlerFixture()
		f.seedMomentum("anchor-1", []string{"src-1", "src-2", "src-3"})

		ctx := context.Background()
		emitted, err := f.bundler.Scan(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, emitted)

		emitted, err = f.bundler.Scan(ctx)
		require.NoError(t, err)
		assert.Zero(t, emitted)
		assert.Len(t, f.insights.insights, 1)
	})
}
