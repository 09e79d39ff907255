package fusion

import (
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// Classification 分类结果
type Classification struct {
	Type  entity.InsightType
	Score float64
}

// Classify 把配对分映射到洞见类型。判定顺序固定：
// Convergence（独立证据汇聚，无矛盾信号）优先于 Collision（矛盾对），
// 两者都不满足时再看 Lead。低于 Lead 阈值不发射。
//
// Convergence 与 Lead 都要求高多样性（跨来源或跨模态）：
// 同源同模态的配对不构成独立证据，分再高也不发射。
// Contradiction 信号来自 contradiction 类型的边或显式的矛盾标注。
func Classify(score float64, contradiction, diverse bool, profile *entity.WeightProfile) (Classification, bool) {
	if score >= profile.TauConv && !contradiction && diverse {
		return Classification{Type: entity.InsightTypeConvergence, Score: score}, true
	}
	if score >= profile.TauCol && contradiction {
		return Classification{Type: entity.InsightTypeCollision, Score: score}, true
	}
	if score >= profile.TauLead && diverse {
		return Classification{Type: entity.InsightTypeLead, Score: score}, true
	}
	return Classification{}, false
}

// Diverse 判断候选特征是否具备高多样性（跨模态或跨来源）
func Diverse(f entity.EdgeFeatures) bool {
	return f.ModalityDiversity == 1 || f.SourceDiversity == 1
}

// HasContradiction 判断候选对是否带矛盾信号：
// 任一方带 contradiction 标签，或双方 claim 对象来源相异且标签含显式否定。
func HasContradiction(anchor, candidate *entity.Object, edgeKinds []entity.EdgeKind) bool {
	for _, k := range edgeKinds {
		if k == entity.EdgeKindContradiction {
			return true
		}
	}
	for _, t := range anchor.Tags {
		if t == "contradiction" || t == "disputed" {
			return true
		}
	}
	for _, t := range candidate.Tags {
		if t == "contradiction" || t == "disputed" {
			return true
		}
	}
	return false
}
