// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/dto"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
)

// respondError 统一错误出口：AppError 按自带状态码返回，
// 其余错误记日志并返回 500
func respondError(c *gin.Context, ctx context.Context, err error, fallbackMsg string) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.HTTPStatus,
			Message: appErr.Message,
			Error: &dto.ErrorDetail{
				ErrorCode: string(appErr.Code),
				Details:   appErr.Detail,
			},
			TraceID: c.GetString("trace_id"),
		})
		return
	}
	logger.Error(ctx, fallbackMsg, err)
	dto.InternalError(c, fallbackMsg)
}
