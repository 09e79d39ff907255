// Package graph 提供证据图的增量维护与局部结构指标
package graph

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
)

var tracer = otel.Tracer("graph")

// Service 图服务。所有指标都只依赖一跳/两跳邻域，
// 不做全图遍历，upsert 代价与邻域规模成正比。
type Service struct {
	edgeRepo repository.EdgeRepository
}

// NewService 创建图服务
func NewService(edgeRepo repository.EdgeRepository) *Service {
	return &Service{edgeRepo: edgeRepo}
}

// Neighborhood 对象的一跳邻域与邻居的邻居集合
type Neighborhood struct {
	ObjectID  string
	Neighbors []string
	// AdjSets 邻域内每个节点（含自身）的邻居集合
	AdjSets map[string]map[string]bool
}

// LoadNeighborhood 加载对象的局部邻域
func (s *Service) LoadNeighborhood(ctx context.Context, objectID string) (*Neighborhood, error) {
	ctx, span := tracer.Start(ctx, "graph.LoadNeighborhood",
		trace.WithAttributes(attribute.String("object_id", objectID)))
	defer span.End()

	neighbors, err := s.edgeRepo.NeighborIDs(ctx, objectID)
	if err != nil {
		return nil, err
	}

	ids := append([]string{objectID}, neighbors...)
	adj, err := s.edgeRepo.NeighborIDsBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	adjSets := make(map[string]map[string]bool, len(adj))
	for id, list := range adj {
		set := make(map[string]bool, len(list))
		for _, n := range list {
			set[n] = true
		}
		adjSets[id] = set
	}
	// 孤立节点也要有空集合，后续查找不区分
	for _, id := range ids {
		if _, ok := adjSets[id]; !ok {
			adjSets[id] = map[string]bool{}
		}
	}

	span.SetAttributes(attribute.Int("neighbor_count", len(neighbors)))
	return &Neighborhood{
		ObjectID:  objectID,
		Neighbors: neighbors,
		AdjSets:   adjSets,
	}, nil
}

// NeighborSet 返回某节点在邻域视图内的邻居集合
func (n *Neighborhood) NeighborSet(id string) map[string]bool {
	if set, ok := n.AdjSets[id]; ok {
		return set
	}
	return map[string]bool{}
}

// AdamicAdar 计算两个对象的 Adamic-Adar 指数：
// 对每个共同邻居 z，累加 1/log(deg(z))。度数为 1 的共同邻居
// 以 log(2) 计，避免除零。
func AdamicAdar(aNeighbors, bNeighbors map[string]bool, degree func(string) int) float64 {
	var sum float64
	for z := range aNeighbors {
		if !bNeighbors[z] {
			continue
		}
		d := degree(z)
		if d < 2 {
			d = 2
		}
		sum += 1 / math.Log(float64(d))
	}
	return sum
}

// AdamicAdarPair 基于邻域视图计算锚点与候选的 Adamic-Adar
func (n *Neighborhood) AdamicAdarPair(candidateID string, candidateNeighbors map[string]bool) float64 {
	anchorSet := n.NeighborSet(n.ObjectID)
	return AdamicAdar(anchorSet, candidateNeighbors, func(z string) int {
		return len(n.NeighborSet(z))
	})
}

// LocalClustering 计算局部聚类系数：邻居间实际连边数 / 可能连边数
func LocalClustering(neighbors map[string]bool, adjacent func(a, b string) bool) float64 {
	n := len(neighbors)
	if n < 2 {
		return 0
	}

	ids := make([]string, 0, n)
	for id := range neighbors {
		ids = append(ids, id)
	}

	links := 0
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if adjacent(ids[i], ids[j]) {
				links++
			}
		}
	}

	return 2 * float64(links) / (float64(n) * float64(n-1))
}

// ClusteringDelta 计算把候选加入锚点邻域后锚点聚类系数的变化。
// 正值意味着候选让锚点的邻域更致密。
func (n *Neighborhood) ClusteringDelta(candidateID string, candidateNeighbors map[string]bool) float64 {
	anchorSet := n.NeighborSet(n.ObjectID)

	adjacent := func(a, b string) bool {
		if n.NeighborSet(a)[b] || n.NeighborSet(b)[a] {
			return true
		}
		// 候选的连边尚未写入图，这里视作已存在
		if a == candidateID && candidateNeighbors[b] {
			return true
		}
		if b == candidateID && candidateNeighbors[a] {
			return true
		}
		return false
	}

	before := LocalClustering(anchorSet, adjacent)

	withCandidate := make(map[string]bool, len(anchorSet)+1)
	for id := range anchorSet {
		withCandidate[id] = true
	}
	withCandidate[candidateID] = true

	after := LocalClustering(withCandidate, adjacent)
	return after - before
}

// Snapshot 生成锚点邻域快照，洞见载荷记录发射时刻的图状态
func (s *Service) Snapshot(ctx context.Context, objectID string) (*entity.NeighborhoodSnapshot, error) {
	nb, err := s.LoadNeighborhood(ctx, objectID)
	if err != nil {
		return nil, err
	}

	anchorSet := nb.NeighborSet(objectID)
	clustering := LocalClustering(anchorSet, func(a, b string) bool {
		return nb.NeighborSet(a)[b] || nb.NeighborSet(b)[a]
	})

	return &entity.NeighborhoodSnapshot{
		AnchorID:   objectID,
		Neighbors:  nb.Neighbors,
		Degree:     len(nb.Neighbors),
		Clustering: clustering,
	}, nil
}

// UpsertEdge 写入或更新一条边
func (s *Service) UpsertEdge(ctx context.Context, edge *entity.Edge) error {
	ctx, span := tracer.Start(ctx, "graph.UpsertEdge",
		trace.WithAttributes(
			attribute.String("src_id", edge.SrcID),
			attribute.String("dst_id", edge.DstID),
			attribute.String("kind", string(edge.Kind)),
		))
	defer span.End()

	// 边的端点取规范序，(a,b) 与 (b,a) 视为同一条边
	if edge.SrcID > edge.DstID {
		edge.SrcID, edge.DstID = edge.DstID, edge.SrcID
	}

	return s.edgeRepo.Upsert(ctx, edge)
}

// RemoveObject 墓碑清理：删除对象的全部边
func (s *Service) RemoveObject(ctx context.Context, objectID string) error {
	ctx, span := tracer.Start(ctx, "graph.RemoveObject",
		trace.WithAttributes(attribute.String("object_id", objectID)))
	defer span.End()

	return s.edgeRepo.DeleteByObject(ctx, objectID)
}
