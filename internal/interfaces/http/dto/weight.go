package dto

import "github.com/dmedlin87/Theoria-sub008/internal/domain/entity"

// RollbackWeightsRequest 回滚请求
type RollbackWeightsRequest struct {
	Version int `json:"version" binding:"required,min=1"`
}

// WeightVersionsResponse 权重版本列表响应
type WeightVersionsResponse struct {
	Versions []*entity.WeightProfile `json:"versions"`
}
