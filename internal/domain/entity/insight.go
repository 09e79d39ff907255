// Package entity 定义领域实体
package entity

import (
	"time"
)

// InsightType 洞见类型
type InsightType string

const (
	InsightTypeConvergence InsightType = "convergence"
	InsightTypeCollision   InsightType = "collision"
	InsightTypeLead        InsightType = "lead"
	InsightTypeBundle      InsightType = "bundle"
)

// Valid 检查洞见类型是否合法
func (t InsightType) Valid() bool {
	switch t {
	case InsightTypeConvergence, InsightTypeCollision, InsightTypeLead, InsightTypeBundle:
		return true
	}
	return false
}

// InsightStatus 洞见状态
type InsightStatus string

const (
	InsightStatusActive    InsightStatus = "active"
	InsightStatusSnoozed   InsightStatus = "snoozed"
	InsightStatusDismissed InsightStatus = "dismissed"
	InsightStatusPinned    InsightStatus = "pinned"
	InsightStatusMuted     InsightStatus = "muted"
)

// Dismissed 判断洞见是否已被关闭（冷却窗口只约束未关闭的洞见）
func (s InsightStatus) Dismissed() bool {
	return s == InsightStatusDismissed || s == InsightStatusMuted
}

// InsightMember 洞见贡献对象（按贡献排序）
type InsightMember struct {
	ObjectID  string       `json:"object_id"`
	PairScore float64      `json:"pair_score"`
	Features  EdgeFeatures `json:"features"`
}

// NeighborhoodSnapshot 发射时刻的集群邻域快照
type NeighborhoodSnapshot struct {
	AnchorID   string   `json:"anchor_id"`
	Neighbors  []string `json:"neighbors"`
	Degree     int      `json:"degree"`
	Clustering float64  `json:"clustering"`
}

// InsightPayload 洞见载荷
type InsightPayload struct {
	Members   []InsightMember      `json:"members"`
	Explainer EdgeFeatures         `json:"explainer"` // 最高分候选对的特征分解
	Snapshot  NeighborhoodSnapshot `json:"snapshot"`
}

// Insight 发射的洞见
// 冷却窗口内同一 (cluster_id, insight_type) 至多一条未关闭的记录。
type Insight struct {
	ID        string         `json:"id" gorm:"type:varchar(64);primaryKey"`
	Type      InsightType    `json:"type" gorm:"column:insight_type;type:varchar(32);not null"`
	Score     float64        `json:"score" gorm:"not null"`
	ClusterID string         `json:"cluster_id" gorm:"type:varchar(128);not null"`
	SourceKey string         `json:"source_key,omitempty" gorm:"type:varchar(160)"` // 规范序来源对，如 "srcA|srcB"
	Mode      string         `json:"mode" gorm:"type:varchar(32);default:'study'"`
	Status    InsightStatus  `json:"status" gorm:"type:varchar(16);default:'active'"`
	Payload   InsightPayload `json:"payload" gorm:"type:jsonb;serializer:json"`
	EmittedAt time.Time      `json:"emitted_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Insight) TableName() string {
	return "insights"
}
