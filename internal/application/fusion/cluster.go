package fusion

import (
	"sort"
	"strings"
)

// ClusterKey 为一对对象生成规范化集群键，端点取字典序。
// 洞见冷却以 (cluster, type) 为粒度，键必须与端点顺序无关。
func ClusterKey(aID, bID string) string {
	if aID > bID {
		aID, bID = bID, aID
	}
	return aID + "|" + bID
}

// SourceKey 为一对来源生成规范化来源键，空来源归一为 "-"
func SourceKey(aSrc, bSrc string) string {
	if aSrc == "" {
		aSrc = "-"
	}
	if bSrc == "" {
		bSrc = "-"
	}
	if aSrc > bSrc {
		aSrc, bSrc = bSrc, aSrc
	}
	return aSrc + "|" + bSrc
}

// ClusterOf 从集群键还原端点
func ClusterOf(key string) (string, string) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

// Percentile 计算样本的 p 分位数（0..1），样本为空返回 0。
// 垃圾门槛用：聚类提升必须超过近期样本的高分位才允许发射。
func Percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
