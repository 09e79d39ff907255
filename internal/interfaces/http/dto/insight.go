// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// InsightResponse 洞见响应
type InsightResponse struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Score     float64                `json:"score"`
	ClusterID string                 `json:"cluster_id"`
	Mode      string                 `json:"mode"`
	Status    string                 `json:"status"`
	Payload   entity.InsightPayload  `json:"payload"`
	EmittedAt time.Time              `json:"emitted_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// InsightListResponse 洞见列表响应
type InsightListResponse struct {
	Insights []*InsightResponse `json:"insights"`
}

// ToInsightResponse 实体转响应
func ToInsightResponse(ins *entity.Insight) *InsightResponse {
	return &InsightResponse{
		ID:        ins.ID,
		Type:      string(ins.Type),
		Score:     ins.Score,
		ClusterID: ins.ClusterID,
		Mode:      ins.Mode,
		Status:    string(ins.Status),
		Payload:   ins.Payload,
		EmittedAt: ins.EmittedAt,
		UpdatedAt: ins.UpdatedAt,
	}
}

// ToInsightListResponse 实体列表转响应
func ToInsightListResponse(items []*entity.Insight) *InsightListResponse {
	insights := make([]*InsightResponse, 0, len(items))
	for _, ins := range items {
		insights = append(insights, ToInsightResponse(ins))
	}
	return &InsightListResponse{Insights: insights}
}

// RecordActionRequest 用户反馈请求
type RecordActionRequest struct {
	Action     string  `json:"action" binding:"required"`
	Confidence float64 `json:"confidence"`
}

// ActionResponse 用户反馈响应
type ActionResponse struct {
	ID         string    `json:"id"`
	InsightID  string    `json:"insight_id"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToActionResponse 实体转响应
func ToActionResponse(a *entity.UserAction) *ActionResponse {
	return &ActionResponse{
		ID:         a.ID,
		InsightID:  a.InsightID,
		Action:     string(a.Action),
		Confidence: a.Confidence,
		CreatedAt:  a.CreatedAt,
	}
}

// ActionListResponse 反馈列表响应
type ActionListResponse struct {
	Actions []*ActionResponse `json:"actions"`
}

// ToActionListResponse 实体列表转响应
func ToActionListResponse(items []*entity.UserAction) *ActionListResponse {
	actions := make([]*ActionResponse, 0, len(items))
	for _, a := range items {
		actions = append(actions, ToActionResponse(a))
	}
	return &ActionListResponse{Actions: actions}
}
