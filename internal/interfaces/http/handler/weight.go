package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/application/tuner"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/dto"
)

// WeightHandler 权重档案处理器
type WeightHandler struct {
	tunerSvc *tuner.Tuner
}

// NewWeightHandler 创建权重档案处理器
func NewWeightHandler(tunerSvc *tuner.Tuner) *WeightHandler {
	return &WeightHandler{tunerSvc: tunerSvc}
}

// modeParam 取路径中的模式，缺省用默认模式
func modeParam(c *gin.Context) string {
	mode := c.Param("mode")
	if mode == "" {
		mode = entity.DefaultMode
	}
	return mode
}

// GetWeights 获取当前权重档案
// @Summary 获取当前权重档案
// @Description 返回某模式最新版本，尚无调参历史时返回默认档案
// @Tags Weights
// @Produce json
// @Param mode path string true "权重模式"
// @Success 200 {object} dto.Response[entity.WeightProfile]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/weights/{mode} [get]
func (h *WeightHandler) GetWeights(c *gin.Context) {
	ctx := c.Request.Context()

	profile, err := h.tunerSvc.Latest(ctx, modeParam(c))
	if err != nil {
		respondError(c, ctx, err, "failed to get weight profile")
		return
	}
	dto.Success(c, profile)
}

// ListWeightVersions 列出权重档案历史版本
// @Summary 列出权重档案历史版本
// @Tags Weights
// @Produce json
// @Param mode path string true "权重模式"
// @Success 200 {object} dto.Response[dto.WeightVersionsResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/weights/{mode}/versions [get]
func (h *WeightHandler) ListWeightVersions(c *gin.Context) {
	ctx := c.Request.Context()

	versions, err := h.tunerSvc.Versions(ctx, modeParam(c))
	if err != nil {
		respondError(c, ctx, err, "failed to list weight versions")
		return
	}
	dto.Success(c, &dto.WeightVersionsResponse{Versions: versions})
}

// RollbackWeights 回滚权重档案
// @Summary 回滚权重档案
// @Description 复制目标版本的内容写为新版本，历史不被改写
// @Tags Weights
// @Accept json
// @Produce json
// @Param mode path string true "权重模式"
// @Param body body dto.RollbackWeightsRequest true "目标版本"
// @Success 201 {object} dto.Response[entity.WeightProfile]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/weights/{mode}/rollback [post]
func (h *WeightHandler) RollbackWeights(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RollbackWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile, err := h.tunerSvc.Rollback(ctx, modeParam(c), req.Version)
	if err != nil {
		respondError(c, ctx, err, "failed to rollback weight profile")
		return
	}
	dto.Created(c, profile)
}
