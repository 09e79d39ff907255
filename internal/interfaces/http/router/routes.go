// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/handler"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	insightHandler *handler.InsightHandler,
	objectHandler *handler.ObjectHandler,
	weightHandler *handler.WeightHandler,
) {
	// 洞见
	insights := v1.Group("/insights")
	{
		insights.GET("", insightHandler.ListInsights)
		insights.GET("/stream", insightHandler.StreamInsights) // SSE
		insights.GET("/:iid", insightHandler.GetInsight)
		insights.POST("/:iid/actions", insightHandler.RecordAction)
		insights.GET("/:iid/actions", insightHandler.ListActions)
	}

	// 评分诊断
	debug := v1.Group("/debug")
	{
		debug.GET("/score/:oid", insightHandler.DebugScore)
	}

	// 采集通知
	ingest := v1.Group("/ingest")
	{
		ingest.POST("/notify", objectHandler.IngestNotify)
	}

	// 证据对象
	objects := v1.Group("/objects")
	{
		objects.POST("", objectHandler.CreateObject)
		objects.GET("", objectHandler.ListObjects)
		objects.GET("/:oid", objectHandler.GetObject)
		objects.PUT("/:oid", objectHandler.UpdateObject)
		objects.DELETE("/:oid", objectHandler.TombstoneObject)
		objects.PUT("/:oid/embedding", objectHandler.SetEmbedding)
	}

	// 来源
	sources := v1.Group("/sources")
	{
		sources.GET("", objectHandler.ListSources)
		sources.POST("", objectHandler.CreateSource)
	}

	// 权重档案
	weights := v1.Group("/weights")
	{
		weights.GET("/:mode", weightHandler.GetWeights)
		weights.GET("/:mode/versions", weightHandler.ListWeightVersions)
		weights.POST("/:mode/rollback", weightHandler.RollbackWeights)
	}
}
