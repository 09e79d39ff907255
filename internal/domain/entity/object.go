// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/lib/pq"
)

// ObjectType 证据对象类型
type ObjectType string

const (
	ObjectTypePassage  ObjectType = "passage"
	ObjectTypeNote     ObjectType = "note"
	ObjectTypeClaim    ObjectType = "claim"
	ObjectTypeEvidence ObjectType = "evidence"
)

// Valid 检查对象类型是否合法
func (t ObjectType) Valid() bool {
	switch t {
	case ObjectTypePassage, ObjectTypeNote, ObjectTypeClaim, ObjectTypeEvidence:
		return true
	}
	return false
}

// Object 证据对象
// Embedding 向量本体存放在 Milvus；这里只记录 pending 状态。
type Object struct {
	ID               string         `json:"id" gorm:"type:varchar(64);primaryKey"`
	ObjectType       ObjectType     `json:"object_type" gorm:"type:varchar(32);not null"`
	Title            string         `json:"title" gorm:"type:text"`
	Body             string         `json:"body" gorm:"type:text"`
	RefRanges        pq.StringArray `json:"ref_ranges,omitempty" gorm:"type:text[]"` // 规范引用区段，有序
	Modality         string         `json:"modality" gorm:"type:varchar(32)"`        // transcript/document/annotation
	Tags             pq.StringArray `json:"tags,omitempty" gorm:"type:text[]"`
	SourceID         string         `json:"source_id,omitempty" gorm:"type:varchar(64);index"` // 弱引用，Source 生命周期独立
	Stability        float64        `json:"stability" gorm:"default:0"`                        // 0..1，外部提供
	EmbeddingPending bool           `json:"embedding_pending" gorm:"default:true"`
	NeedsReview      bool           `json:"needs_review" gorm:"default:false"`
	Tombstoned       bool           `json:"tombstoned" gorm:"default:false"`
	PublishedAt      time.Time      `json:"published_at" gorm:"not null"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Object) TableName() string {
	return "objects"
}

// Searchable 判断对象是否可参与近邻检索
func (o *Object) Searchable() bool {
	return !o.Tombstoned && !o.EmbeddingPending
}

// Source 来源出处
type Source struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Origin    string    `json:"origin" gorm:"type:text;not null"`
	Author    string    `json:"author,omitempty" gorm:"type:text"`
	Year      int       `json:"year,omitempty" gorm:"default:0"`
	Modality  string    `json:"modality,omitempty" gorm:"type:varchar(32)"`
	URL       string    `json:"url,omitempty" gorm:"column:url;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Source) TableName() string {
	return "sources"
}
