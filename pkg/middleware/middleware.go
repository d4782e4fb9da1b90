// Package middleware 提供 gin 中间件：存储上下文、请求日志、请求 ID、追踪、指标、限流与 CORS.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/errs"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
)

// StatusClientClosedRequest 客户端在响应之前断开（nginx 约定的 499）.
const StatusClientClosedRequest = 499

// ErrMissingToken 启用 auth.require_token 时请求没有携带上传令牌.
var ErrMissingToken = errors.New("missing upload auth token")

// ErrorResponse 错误响应体.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

// StatusFor 按错误分类返回 HTTP 状态码.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errs.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, s3c.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, s3c.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, s3c.ErrBreakerOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, s3c.ErrUploadFailed), errors.Is(err, s3c.ErrStatFailed),
		errors.Is(err, s3c.ErrDeleteFailed), errors.Is(err, s3c.ErrPresignFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse 构造错误响应体.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Kind: string(errs.KindOf(err))}

	if errors.Is(err, ErrMissingToken) {
		resp.Kind = "auth"
	}

	if fields := errs.Fields(err); len(fields) > 0 {
		resp.Field = fields[0]
	}

	return resp
}

// AbortWithError 记录错误并按分类中止请求.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(err), NewErrorResponse(err))
}
