// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionEvidenceObjects 证据对象向量集合
	CollectionEvidenceObjects = "evidence_objects"

	// VectorDimension 向量维度
	VectorDimension = 1024
)

// EvidenceObjectsSchema 证据对象 Collection Schema
func EvidenceObjectsSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionEvidenceObjects,
		Description:    "Evidence object embeddings for neighbor retrieval",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "object_type",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "modality",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "source_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "tombstoned",
				DataType: entity.FieldTypeBool,
			},
			{
				Name:     "published_at",
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// EvidenceVector 证据对象向量数据结构
type EvidenceVector struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	ObjectType  string    `json:"object_type"`
	Modality    string    `json:"modality"`
	SourceID    string    `json:"source_id"`
	Tombstoned  bool      `json:"tombstoned"`
	PublishedAt int64     `json:"published_at"`
}
