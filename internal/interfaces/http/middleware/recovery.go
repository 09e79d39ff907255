// Package middleware 提供 HTTP 中间件
package middleware

import (
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmedlin87/Theoria-sub008/internal/interfaces/http/dto"
	"github.com/dmedlin87/Theoria-sub008/pkg/errors"
	"github.com/dmedlin87/Theoria-sub008/pkg/logger"
)

// Recovery Panic 恢复中间件。
// 对端已断开的连接只中止请求，不再往死掉的连接上写响应体。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			err := fmt.Errorf("%v", r)
			logger.Error(c.Request.Context(), "panic recovered", err,
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"request_id", c.GetString("request_id"),
			)

			if brokenConnection(r) {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
				Error: &dto.ErrorDetail{
					ErrorCode: string(errors.CodeInternalError),
				},
				TraceID: c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}

// brokenConnection 判断 panic 是否源于对端断开（broken pipe / reset）
func brokenConnection(r interface{}) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}

	var opErr *net.OpError
	if !stderrors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !stderrors.As(opErr.Err, &sysErr) {
		return false
	}

	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
