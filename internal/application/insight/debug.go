package insight

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmedlin87/Theoria-sub008/internal/application/feature"
	"github.com/dmedlin87/Theoria-sub008/internal/application/fusion"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
)

// debugScoreTTL 调试评分缓存时长，对象变更时由 InvalidateObject 清除
const debugScoreTTL = 60 * time.Second

// DebugScore 诊断视图：对一个对象重跑召回与评分，不写边、不发洞见。
// 返回的候选带完整特征分解，外加对象当前的图状态，用于解释"为什么没发"。
type DebugScore struct {
	ObjectID   string                `json:"object_id"`
	Degree     int                   `json:"degree"`
	Edges      []*entity.Edge        `json:"edges,omitempty"`
	Profile    *entity.WeightProfile `json:"profile"`
	Candidates []*fusion.Candidate   `json:"candidates"`
}

// Explain 只读重算一个对象的候选评分，结果短缓存并以 singleflight 合并并发请求
func (s *UpsertService) Explain(ctx context.Context, objectID string) (*DebugScore, error) {
	ctx, span := tracer.Start(ctx, "insight.Explain",
		trace.WithAttributes(attribute.String("object_id", objectID)))
	defer span.End()

	data, err := s.cache.GetOrLoadSafe(ctx, redis.BuildDebugScoreKey(objectID), debugScoreTTL, func() (interface{}, error) {
		return s.explain(ctx, objectID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var out DebugScore
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to decode cached score breakdown")
	}
	return &out, nil
}

func (s *UpsertService) explain(ctx context.Context, objectID string) (*DebugScore, error) {
	obj, err := s.objectRepo.GetByID(ctx, objectID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.ErrObjectNotFound
	}
	if obj.Tombstoned {
		return nil, errors.New(errors.CodeObjectTombstoned, "object is tombstoned")
	}

	vec, err := s.embedder.EmbedOne(ctx, obj.Title+"\n"+obj.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeEmbeddingFailed, "embedding collaborator call failed")
	}

	results, candObjects, err := s.recallCandidates(ctx, obj, vec)
	if err != nil {
		return nil, err
	}

	profile, err := s.activeProfile(ctx)
	if err != nil {
		return nil, err
	}

	degree, err := s.edgeRepo.Degree(ctx, objectID)
	if err != nil {
		return nil, err
	}
	edges, err := s.edgeRepo.ListBySrc(ctx, objectID)
	if err != nil {
		return nil, err
	}

	out := &DebugScore{ObjectID: objectID, Degree: degree, Edges: edges, Profile: profile}
	if len(results) == 0 {
		return out, nil
	}

	nb, err := s.graphSvc.LoadNeighborhood(ctx, obj.ID)
	if err != nil {
		return nil, err
	}
	candIDs := make([]string, 0, len(results))
	for _, r := range results {
		candIDs = append(candIDs, r.ID)
	}
	candAdj, err := s.edgeRepo.NeighborIDsBatch(ctx, candIDs)
	if err != nil {
		return nil, err
	}

	candidates := make([]*fusion.Candidate, 0, len(results))
	for _, r := range results {
		cand := candObjects[r.ID]
		if cand == nil {
			continue
		}
		candSet := make(map[string]bool, len(candAdj[r.ID]))
		for _, n := range candAdj[r.ID] {
			candSet[n] = true
		}
		feats, err := s.features.Compute(ctx, &feature.PairInput{
			Anchor:             obj,
			Candidate:          cand,
			Semantic:           float64(r.Score),
			Neighborhood:       nb,
			CandidateNeighbors: candSet,
		})
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, &fusion.Candidate{
			ObjectID: cand.ID,
			Features: feats,
		})
	}

	fusion.FuseRanks(candidates, s.cfg.RRFConstant)
	fusion.ScoreAll(candidates, profile)
	out.Candidates = fusion.TopByScore(candidates)
	return out, nil
}
