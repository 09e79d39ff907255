// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/application/insight"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/domain/repository"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/dto"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
)

// InsightHandler 洞见处理器
type InsightHandler struct {
	querySvc  *insight.QueryService
	upsertSvc *insight.UpsertService
	eventBus  *redis.InsightEventBus
}

// NewInsightHandler 创建洞见处理器
func NewInsightHandler(querySvc *insight.QueryService, upsertSvc *insight.UpsertService, eventBus *redis.InsightEventBus) *InsightHandler {
	return &InsightHandler{
		querySvc:  querySvc,
		upsertSvc: upsertSvc,
		eventBus:  eventBus,
	}
}

// ListInsights 获取洞见列表
// @Summary 获取洞见列表
// @Description 按类型/状态/时间窗过滤，新的在前
// @Tags Insights
// @Produce json
// @Param type query string false "洞见类型"
// @Param status query string false "洞见状态"
// @Param mode query string false "权重模式"
// @Param min_score query number false "最低评分"
// @Param since query string false "起始时间 (RFC3339)"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.InsightListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/insights [get]
func (h *InsightHandler) ListInsights(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.InsightFilter{
		Type:   entity.InsightType(c.Query("type")),
		Status: entity.InsightStatus(c.Query("status")),
		Mode:   c.Query("mode"),
	}
	if minStr := c.Query("min_score"); minStr != "" {
		minScore, err := strconv.ParseFloat(minStr, 64)
		if err != nil || minScore < 0 {
			dto.BadRequest(c, "invalid min_score, expected non-negative number")
			return
		}
		filter.MinScore = minScore
	}
	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			dto.BadRequest(c, "invalid since timestamp, expected RFC3339")
			return
		}
		filter.Since = since
	}

	result, err := h.querySvc.List(ctx, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondError(c, ctx, err, "failed to list insights")
		return
	}

	resp := dto.ToInsightListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetInsight 获取洞见详情
// @Summary 获取洞见详情
// @Description 返回完整载荷：成员、特征分解、邻域快照
// @Tags Insights
// @Produce json
// @Param iid path string true "洞见 ID"
// @Success 200 {object} dto.Response[dto.InsightResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/insights/{iid} [get]
func (h *InsightHandler) GetInsight(c *gin.Context) {
	ctx := c.Request.Context()
	insightID := c.Param("iid")

	ins, err := h.querySvc.Get(ctx, insightID)
	if err != nil {
		respondError(c, ctx, err, "failed to get insight")
		return
	}
	dto.Success(c, dto.ToInsightResponse(ins))
}

// RecordAction 记录用户反馈
// @Summary 记录用户反馈
// @Description accept/snooze/discard/pin/mute，同步推进洞见状态
// @Tags Insights
// @Accept json
// @Produce json
// @Param iid path string true "洞见 ID"
// @Param body body dto.RecordActionRequest true "反馈"
// @Success 201 {object} dto.Response[dto.ActionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/insights/{iid}/actions [post]
func (h *InsightHandler) RecordAction(c *gin.Context) {
	ctx := c.Request.Context()
	insightID := c.Param("iid")

	var req dto.RecordActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	action, err := h.querySvc.RecordAction(ctx, insightID, entity.ActionType(req.Action), req.Confidence)
	if err != nil {
		respondError(c, ctx, err, "failed to record action")
		return
	}
	dto.Created(c, dto.ToActionResponse(action))
}

// ListActions 获取洞见的反馈历史
// @Summary 获取反馈历史
// @Tags Insights
// @Produce json
// @Param iid path string true "洞见 ID"
// @Success 200 {object} dto.Response[dto.ActionListResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/insights/{iid}/actions [get]
func (h *InsightHandler) ListActions(c *gin.Context) {
	ctx := c.Request.Context()
	insightID := c.Param("iid")

	actions, err := h.querySvc.ListActions(ctx, insightID)
	if err != nil {
		respondError(c, ctx, err, "failed to list actions")
		return
	}
	dto.Success(c, dto.ToActionListResponse(actions))
}

// StreamInsights SSE 推送新洞见
// @Summary 实时洞见流
// @Description 通过 SSE 推送新发射的洞见，断线后客户端应回落到列表接口对账
// @Tags Insights
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/insights/stream [get]
func (h *InsightHandler) StreamInsights(c *gin.Context) {
	ctx := c.Request.Context()

	sub := h.eventBus.Subscribe(ctx)
	defer func() {
		if err := sub.Close(); err != nil {
			logger.Warn(ctx, "failed to close insight subscription", "error", err)
		}
	}()
	ch := sub.Channel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 定期心跳防止中间代理断开空闲连接
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("insight", msg.Payload)
			return true

		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true

		case <-ctx.Done():
			// 客户端断开
			return false
		}
	})
}

// DebugScore 洞见评分诊断
// @Summary 评分诊断
// @Description 只读重算一个对象的候选评分，返回特征与融合分解
// @Tags Debug
// @Produce json
// @Param oid path string true "对象 ID"
// @Success 200 {object} dto.Response[insight.DebugScore]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/debug/score/{oid} [get]
func (h *InsightHandler) DebugScore(c *gin.Context) {
	ctx := c.Request.Context()
	objectID := c.Param("oid")

	result, err := h.upsertSvc.Explain(ctx, objectID)
	if err != nil {
		respondError(c, ctx, err, "failed to compute score breakdown")
		return
	}
	dto.Success(c, result)
}
