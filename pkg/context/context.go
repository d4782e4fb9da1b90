// Package context 拓展上下文功能，将上传上下文、请求 ID、追踪信息集成到上下文中，方便在处理链各处传递和使用.
package context

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/upload"
	"github.com/yeisme/uploadgate/pkg/urlbuilder"
)

type ContextKey string

const (
	UploadContextKey ContextKey = "uploadContext"
	RequestIDKey     ContextKey = "requestID"
)

// Options 本次请求解析出的上传选项.
type Options struct {
	Params        upload.Params
	Decision      route.Decision
	Request       route.RequestInfo
	Driver        string
	MaxUploadSize int64         // 0 表示不限制
	PresignExpiry time.Duration // 预签名默认有效期
}

// UploadContext 每个请求一份，中间件一次性组装完成后挂载；要么五个字段全部就绪，要么不挂载.
type UploadContext struct {
	Options       Options
	StorageClient s3c.ObjectClient
	PresignClient s3c.PostPresigner
	AuthToken     string // 可以为空（未启用 auth.require_token 时）
	URLBuilder    *urlbuilder.Builder
}

// Complete 所有客户端与构造器均已就绪.
func (u *UploadContext) Complete() bool {
	return u != nil && u.StorageClient != nil && u.PresignClient != nil && u.URLBuilder != nil
}

// WithUploadContext 将 UploadContext 存储到 context 中. 不完整的值不会被挂载.
func WithUploadContext(ctx context.Context, uc *UploadContext) context.Context {
	if !uc.Complete() {
		return ctx
	}

	return context.WithValue(ctx, UploadContextKey, uc)
}

// GetUploadContext 从 context 中获取 UploadContext.
func GetUploadContext(ctx context.Context) (*UploadContext, bool) {
	uc, ok := ctx.Value(UploadContextKey).(*UploadContext)

	return uc, ok && uc != nil
}

// WithRequestID 将请求 ID 存储到 context 中.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID 从 context 中获取请求 ID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)

	return id
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := GetRequestID(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
