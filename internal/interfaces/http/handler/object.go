// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/application/object"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/dto"
)

// ObjectHandler 对象处理器（采集协作方的写路径）
type ObjectHandler struct {
	objectSvc *object.Service
}

// NewObjectHandler 创建对象处理器
func NewObjectHandler(objectSvc *object.Service) *ObjectHandler {
	return &ObjectHandler{objectSvc: objectSvc}
}

// CreateObject 创建证据对象
// @Summary 创建证据对象
// @Description 创建后异步嵌入并进入洞见流水线
// @Tags Objects
// @Accept json
// @Produce json
// @Param body body dto.CreateObjectRequest true "对象"
// @Success 201 {object} dto.Response[dto.ObjectResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/objects [post]
func (h *ObjectHandler) CreateObject(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	obj, err := h.objectSvc.Create(ctx, req.ToCreateInput())
	if err != nil {
		respondError(c, ctx, err, "failed to create object")
		return
	}
	dto.Created(c, dto.ToObjectResponse(obj))
}

// ListObjects 获取对象列表
// @Summary 获取对象列表
// @Description 按类型/来源/模态过滤，新的在前
// @Tags Objects
// @Produce json
// @Param type query string false "对象类型"
// @Param source_id query string false "来源 ID"
// @Param modality query string false "模态"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ObjectListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/objects [get]
func (h *ObjectHandler) ListObjects(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.ObjectFilter{
		ObjectType: entity.ObjectType(c.Query("type")),
		SourceID:   c.Query("source_id"),
		Modality:   c.Query("modality"),
	}

	result, err := h.objectSvc.List(ctx, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, ctx, err, "failed to list objects")
		return
	}

	resp := dto.ToObjectListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetObject 获取对象
// @Summary 获取对象
// @Tags Objects
// @Produce json
// @Param oid path string true "对象 ID"
// @Success 200 {object} dto.Response[dto.ObjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/objects/{oid} [get]
func (h *ObjectHandler) GetObject(c *gin.Context) {
	ctx := c.Request.Context()
	objectID := c.Param("oid")

	obj, err := h.objectSvc.Get(ctx, objectID)
	if err != nil {
		respondError(c, ctx, err, "failed to get object")
		return
	}
	dto.Success(c, dto.ToObjectResponse(obj))
}

// UpdateObject 更新对象
// @Summary 更新对象
// @Description 文本变更会触发重新嵌入与重新评分
// @Tags Objects
// @Accept json
// @Produce json
// @Param oid path string true "对象 ID"
// @Param body body dto.UpdateObjectRequest true "变更字段"
// @Success 200 {object} dto.Response[dto.ObjectResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/objects/{oid} [put]
func (h *ObjectHandler) UpdateObject(c *gin.Context) {
	ctx := c.Request.Context()
	objectID := c.Param("oid")

	var req dto.UpdateObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	obj, err := h.objectSvc.Update(ctx, objectID, req.ToUpdateInput())
	if err != nil {
		respondError(c, ctx, err, "failed to update object")
		return
	}
	dto.Success(c, dto.ToObjectResponse(obj))
}

// TombstoneObject 软删除对象
// @Summary 软删除对象
// @Description 标记墓碑并异步清理向量与关联边
// @Tags Objects
// @Param oid path string true "对象 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/objects/{oid} [delete]
func (h *ObjectHandler) TombstoneObject(c *gin.Context) {
	ctx := c.Request.Context()
	objectID := c.Param("oid")

	if err := h.objectSvc.Tombstone(ctx, objectID); err != nil {
		respondError(c, ctx, err, "failed to tombstone object")
		return
	}
	dto.NoContent(c)
}

// SetEmbedding 写入预计算向量
// @Summary 写入预计算向量
// @Description 采集侧已有向量时直接写入，跳过嵌入协作方
// @Tags Objects
// @Accept json
// @Param oid path string true "对象 ID"
// @Param body body dto.SetEmbeddingRequest true "向量"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/objects/{oid}/embedding [put]
func (h *ObjectHandler) SetEmbedding(c *gin.Context) {
	ctx := c.Request.Context()
	objectID := c.Param("oid")

	var req dto.SetEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.objectSvc.SetEmbedding(ctx, objectID, req.Vector); err != nil {
		respondError(c, ctx, err, "failed to set embedding")
		return
	}
	dto.NoContent(c)
}

// IngestNotify 采集通知
// @Summary 采集通知
// @Description fire-and-forget：验证对象存在后入队一轮 upsert
// @Tags Ingest
// @Accept json
// @Produce json
// @Param body body dto.IngestNotifyRequest true "对象 ID"
// @Success 202 {object} dto.Response[gin.H]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/ingest/notify [post]
func (h *ObjectHandler) IngestNotify(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.objectSvc.Notify(ctx, req.ObjectID); err != nil {
		respondError(c, ctx, err, "failed to enqueue upsert task")
		return
	}
	dto.Accepted(c, gin.H{"object_id": req.ObjectID})
}

// CreateSource 注册来源
// @Summary 注册来源
// @Tags Sources
// @Accept json
// @Produce json
// @Param body body dto.CreateSourceRequest true "来源"
// @Success 201 {object} dto.Response[entity.Source]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/sources [post]
func (h *ObjectHandler) CreateSource(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	src, err := h.objectSvc.CreateSource(ctx, req.ToSourceEntity())
	if err != nil {
		respondError(c, ctx, err, "failed to create source")
		return
	}
	dto.Created(c, src)
}

// ListSources 列出来源
// @Summary 列出来源
// @Tags Sources
// @Produce json
// @Success 200 {object} dto.Response[dto.SourceListResponse]
// @Router /v1/sources [get]
func (h *ObjectHandler) ListSources(c *gin.Context) {
	ctx := c.Request.Context()

	sources, err := h.objectSvc.ListSources(ctx)
	if err != nil {
		respondError(c, ctx, err, "failed to list sources")
		return
	}
	dto.Success(c, &dto.SourceListResponse{Sources: sources})
}
