// Package entity 定义领域实体
package entity

import (
	"time"
)

// EdgeKind 关系边类型
type EdgeKind string

const (
	EdgeKindSemanticSim   EdgeKind = "semantic_sim"
	EdgeKindCoCitation    EdgeKind = "co_citation"
	EdgeKindVerseOverlap  EdgeKind = "verse_overlap"
	EdgeKindTopicOverlap  EdgeKind = "topic_overlap"
	EdgeKindContradiction EdgeKind = "contradiction"
)

// EdgeFeatures 边的信号载荷
// 封闭结构而非开放 map：融合阶段可以穷举所有预期输入，缺省值显式为 0。
type EdgeFeatures struct {
	Semantic          float64 `json:"semantic"`
	AdamicAdar        float64 `json:"adamic_adar"`
	ClusteringDelta   float64 `json:"clustering_delta"`
	JaccardTags       float64 `json:"jaccard_tags"`
	PMI               float64 `json:"pmi"`
	ModalityDiversity float64 `json:"modality_diversity"`
	SourceDiversity   float64 `json:"source_diversity"`
	Recency           float64 `json:"recency"`
	Stability         float64 `json:"stability"`
}

// Edge 对象间的有向带权关系
// 同一 (src, dst, kind) 至多一条；重算覆盖 weight/features 而不是重复插入。
type Edge struct {
	ID        string       `json:"id" gorm:"type:varchar(64);primaryKey"`
	SrcID     string       `json:"src_id" gorm:"type:varchar(64);uniqueIndex:uniq_edge_endpoint_kind;not null"`
	DstID     string       `json:"dst_id" gorm:"type:varchar(64);uniqueIndex:uniq_edge_endpoint_kind;not null"`
	Kind      EdgeKind     `json:"kind" gorm:"type:varchar(32);uniqueIndex:uniq_edge_endpoint_kind;not null"`
	Weight    float64      `json:"weight" gorm:"default:0"`
	Features  EdgeFeatures `json:"features" gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Edge) TableName() string {
	return "edges"
}
