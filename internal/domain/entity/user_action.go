package entity

import "time"

// ActionType 用户对洞见的反馈动作
type ActionType string

const (
	ActionAccept  ActionType = "accept"
	ActionSnooze  ActionType = "snooze"
	ActionDiscard ActionType = "discard"
	ActionPin     ActionType = "pin"
	ActionMute    ActionType = "mute"
)

// Valid 检查动作类型是否合法
func (a ActionType) Valid() bool {
	switch a {
	case ActionAccept, ActionSnooze, ActionDiscard, ActionPin, ActionMute:
		return true
	}
	return false
}

// Label 返回调参器使用的二元标签：accept/pin 为正例，discard/mute 为负例，
// snooze 不参与训练。
func (a ActionType) Label() (float64, bool) {
	switch a {
	case ActionAccept, ActionPin:
		return 1, true
	case ActionDiscard, ActionMute:
		return 0, true
	}
	return 0, false
}

// NextStatus 返回动作对应的洞见目标状态
func (a ActionType) NextStatus() InsightStatus {
	switch a {
	case ActionAccept:
		return InsightStatusActive
	case ActionSnooze:
		return InsightStatusSnoozed
	case ActionDiscard:
		return InsightStatusDismissed
	case ActionPin:
		return InsightStatusPinned
	case ActionMute:
		return InsightStatusMuted
	}
	return InsightStatusActive
}

// UserAction 用户反馈记录（仅追加，不可变）
type UserAction struct {
	ID         string      `json:"id" gorm:"type:varchar(64);primaryKey"`
	InsightID  string      `json:"insight_id" gorm:"type:varchar(64);index;not null"`
	Action     ActionType  `json:"action" gorm:"type:varchar(16);not null"`
	InsightTyp InsightType `json:"insight_type" gorm:"column:insight_type;type:varchar(32);not null"`
	Mode       string      `json:"mode" gorm:"type:varchar(32);default:'study'"`
	Score      float64     `json:"score" gorm:"default:0"`
	Confidence float64     `json:"confidence" gorm:"default:1"`
	CreatedAt  time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (UserAction) TableName() string {
	return "user_actions"
}
