// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"github.com/dmedlin87/Theoria-sub008/internal/application/object"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
)

// CreateObjectRequest 创建对象请求
type CreateObjectRequest struct {
	ObjectType  string    `json:"object_type" binding:"required"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	RefRanges   []string  `json:"ref_ranges"`
	Modality    string    `json:"modality"`
	Tags        []string  `json:"tags"`
	SourceID    string    `json:"source_id"`
	Stability   float64   `json:"stability"`
	PublishedAt time.Time `json:"published_at"`
}

// ToCreateInput 请求转服务输入
func (r *CreateObjectRequest) ToCreateInput() *object.CreateInput {
	return &object.CreateInput{
		ObjectType:  entity.ObjectType(r.ObjectType),
		Title:       r.Title,
		Body:        r.Body,
		RefRanges:   r.RefRanges,
		Modality:    r.Modality,
		Tags:        r.Tags,
		SourceID:    r.SourceID,
		Stability:   r.Stability,
		PublishedAt: r.PublishedAt,
	}
}

// UpdateObjectRequest 更新对象请求，缺省字段不修改
type UpdateObjectRequest struct {
	Title     *string  `json:"title"`
	Body      *string  `json:"body"`
	RefRanges []string `json:"ref_ranges"`
	Tags      []string `json:"tags"`
	Stability *float64 `json:"stability"`
}

// ToUpdateInput 请求转服务输入
func (r *UpdateObjectRequest) ToUpdateInput() *object.UpdateInput {
	return &object.UpdateInput{
		Title:     r.Title,
		Body:      r.Body,
		RefRanges: r.RefRanges,
		Tags:      r.Tags,
		Stability: r.Stability,
	}
}

// SetEmbeddingRequest 写入预计算向量请求
type SetEmbeddingRequest struct {
	Vector []float32 `json:"vector" binding:"required"`
}

// IngestNotifyRequest 采集通知请求
type IngestNotifyRequest struct {
	ObjectID string `json:"object_id" binding:"required"`
}

// ObjectResponse 对象响应
type ObjectResponse struct {
	ID               string    `json:"id"`
	ObjectType       string    `json:"object_type"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	RefRanges        []string  `json:"ref_ranges,omitempty"`
	Modality         string    `json:"modality"`
	Tags             []string  `json:"tags,omitempty"`
	SourceID         string    `json:"source_id,omitempty"`
	Stability        float64   `json:"stability"`
	EmbeddingPending bool      `json:"embedding_pending"`
	NeedsReview      bool      `json:"needs_review"`
	Tombstoned       bool      `json:"tombstoned"`
	PublishedAt      time.Time `json:"published_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToObjectResponse 实体转响应
func ToObjectResponse(obj *entity.Object) *ObjectResponse {
	return &ObjectResponse{
		ID:               obj.ID,
		ObjectType:       string(obj.ObjectType),
		Title:            obj.Title,
		Body:             obj.Body,
		RefRanges:        obj.RefRanges,
		Modality:         obj.Modality,
		Tags:             obj.Tags,
		SourceID:         obj.SourceID,
		Stability:        obj.Stability,
		EmbeddingPending: obj.EmbeddingPending,
		NeedsReview:      obj.NeedsReview,
		Tombstoned:       obj.Tombstoned,
		PublishedAt:      obj.PublishedAt,
		CreatedAt:        obj.CreatedAt,
		UpdatedAt:        obj.UpdatedAt,
	}
}

// ObjectListResponse 对象列表响应
type ObjectListResponse struct {
	Objects []*ObjectResponse `json:"objects"`
}

// ToObjectListResponse 实体列表转响应
func ToObjectListResponse(items []*entity.Object) *ObjectListResponse {
	objects := make([]*ObjectResponse, 0, len(items))
	for _, obj := range items {
		objects = append(objects, ToObjectResponse(obj))
	}
	return &ObjectListResponse{Objects: objects}
}

// CreateSourceRequest 注册来源请求
type CreateSourceRequest struct {
	ID       string `json:"id"`
	Origin   string `json:"origin" binding:"required"`
	Author   string `json:"author"`
	Year     int    `json:"year"`
	Modality string `json:"modality"`
	URL      string `json:"url"`
}

// ToSourceEntity 请求转实体
func (r *CreateSourceRequest) ToSourceEntity() *entity.Source {
	return &entity.Source{
		ID:       r.ID,
		Origin:   r.Origin,
		Author:   r.Author,
		Year:     r.Year,
		Modality: r.Modality,
		URL:      r.URL,
	}
}

// SourceListResponse 来源列表响应
type SourceListResponse struct {
	Sources []*entity.Source `json:"sources"`
}
