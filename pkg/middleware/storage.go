package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yeisme/uploadgate/pkg/configs"
	appctx "github.com/yeisme/uploadgate/pkg/context"
	"github.com/yeisme/uploadgate/pkg/errs"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/metrics"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/secret"
	"github.com/yeisme/uploadgate/pkg/tracing"
	"github.com/yeisme/uploadgate/pkg/upload"
	"github.com/yeisme/uploadgate/pkg/urlbuilder"
)

// HeaderResourceID 资源 ID 请求头，路由参数 :resource_id 缺失时使用.
const HeaderResourceID = "X-Resource-Id"

// StorageDeps 存储上下文中间件的依赖，全部在启动时构造，之后只读.
type StorageDeps struct {
	Config  configs.AppConfig
	Secrets *secret.Resolver
	Router  *route.Resolver
	Factory *s3c.Factory
	Logger  zerolog.Logger
}

// StorageContextMiddleware 为每个请求解析目标位置、构建存储客户端，并把完整的 UploadContext
// 一次性挂载到 request context 与 gin.Context. 任何一步失败都中止请求，不会挂载部分结果.
func StorageContextMiddleware(deps StorageDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartSpan(c.Request.Context(), "route.resolve")

		uc, err := buildUploadContext(ctx, c, deps)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()

			metrics.RouteDecisions.WithLabelValues(decisionOutcome(err)).Inc()
			logger := appctx.WithTraceContext(ctx, deps.Logger)
			logger.Warn().Err(err).
				Str("kind", string(errs.KindOf(err))).Strs("fields", errs.Fields(err)).
				Msg("storage routing failed")

			AbortWithError(c, err)

			return
		}

		span.SetAttributes(
			attribute.String("storage.bucket", uc.Options.Decision.Bucket),
			attribute.String("storage.key", uc.Options.Decision.Key),
			attribute.String("storage.driver", uc.Options.Driver),
		)
		span.SetStatus(codes.Ok, "")
		span.End()

		metrics.RouteDecisions.WithLabelValues(metrics.OutcomeOK).Inc()

		// 挂载是最后一步，之前的任何失败都不会留下部分上下文
		c.Request = c.Request.WithContext(appctx.WithUploadContext(c.Request.Context(), uc))
		c.Set(string(appctx.UploadContextKey), uc)

		c.Next()
	}
}

// GetUploadContext 从 gin.Context 获取存储上下文中间件挂载的 UploadContext.
func GetUploadContext(c *gin.Context) (*appctx.UploadContext, bool) {
	if v, ok := c.Get(string(appctx.UploadContextKey)); ok {
		if uc, ok := v.(*appctx.UploadContext); ok && uc != nil {
			return uc, true
		}
	}

	return appctx.GetUploadContext(c.Request.Context())
}

func buildUploadContext(ctx context.Context, c *gin.Context, deps StorageDeps) (*appctx.UploadContext, error) {
	cfg := &deps.Config

	// 凭证在进程内只解析一次
	creds := deps.Secrets.Credentials()

	token := TokenFromRequest(c, cfg.Auth)
	if cfg.Auth.RequireToken && token == "" {
		return nil, ErrMissingToken
	}

	params, err := upload.FromRequest(c.Request, cfg.Routing.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	resourceID := c.Param("resource_id")
	if resourceID == "" {
		resourceID = c.GetHeader(HeaderResourceID)
	}

	reqInfo := route.RequestInfo{ResourceID: resourceID, User: UserFromRequest(c)}

	dec, err := deps.Router.Resolve(route.Input{
		Filename: params.Filename,
		Metadata: params.Metadata,
		Request:  reqInfo,
	})
	if err != nil {
		return nil, err
	}

	opts := s3c.Options{
		Decision:      dec,
		Credentials:   creds,
		Provider:      cfg.S3.ProviderOptions,
		PresignExpiry: cfg.S3.PresignExpiry,
	}

	std, err := deps.Factory.BuildStandard(ctx, opts)
	if err != nil {
		return nil, err
	}

	presign, err := deps.Factory.BuildPresignPost(ctx, opts)
	if err != nil {
		return nil, err
	}

	host := cfg.Server.PublicHost
	if host == "" {
		host = c.Request.Host
	}

	builder := urlbuilder.New(urlbuilder.Options{
		Host:         host,
		Protocol:     cfg.Server.Protocol,
		Path:         cfg.Server.Path,
		ImplicitPath: cfg.Server.ImplicitPath,
	})

	// 客户端已经断开时不再挂载
	if err := c.Request.Context().Err(); err != nil {
		return nil, err
	}

	return &appctx.UploadContext{
		Options: appctx.Options{
			Params:        params,
			Decision:      dec,
			Request:       reqInfo,
			Driver:        std.Driver(),
			MaxUploadSize: cfg.Routing.MaxUploadSize,
			PresignExpiry: cfg.S3.PresignExpiry,
		},
		StorageClient: std,
		PresignClient: presign,
		AuthToken:     token,
		URLBuilder:    builder,
	}, nil
}

func decisionOutcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, errs.ErrConfiguration):
		return metrics.OutcomeConfiguration
	case errors.Is(err, errs.ErrValidation):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomeError
	}
}
