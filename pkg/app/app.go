// Package app 提供应用程序的初始化和配置功能.
//
// 启动顺序：加载配置 → 初始化日志 → 解析凭证 → 应用一次覆盖项 → 校验配置 → 注册日志脱敏值 →
// 初始化指标与追踪 → 组装 gin 引擎. 任何一步失败都返回错误，由 CLI 以非零状态退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/internal/handle"
	"github.com/yeisme/uploadgate/pkg/internal/router"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/log"
	"github.com/yeisme/uploadgate/pkg/metrics"
	"github.com/yeisme/uploadgate/pkg/middleware"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/secret"
	"github.com/yeisme/uploadgate/pkg/tracing"
)

const readHeaderTimeout = 10 * time.Second

// overlay 进程级覆盖项只应用一次.
var overlay configs.Overlay

// Options 启动选项.
type Options struct {
	ConfigPath string
	Debug      bool
	Overrides  configs.Overrides
}

// Runtime 启动期解析完成的只读状态.
type Runtime struct {
	Config  configs.AppConfig
	Viper   *viper.Viper
	Secrets *secret.Resolver
	Router  *route.Resolver
}

// Bootstrap 加载、覆盖并校验配置. 解析出的凭证作为覆盖项写回配置，保证校验与请求使用同一份凭证.
func Bootstrap(ol *configs.Overlay, opts Options) (*Runtime, error) {
	base, v, err := configs.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	log.Init(base.Log, opts.Debug)
	l := log.Logger()

	creds := secret.NewResolver(base.S3,
		secret.WithOverride(opts.Overrides.Credentials),
		secret.WithLogger(l.With().Str("component", "secret").Logger()),
	)

	o := opts.Overrides.Merge(configs.Overrides{Credentials: creds.Credentials().Override()})

	cfg, err := ol.Apply(base, o)
	if err != nil {
		return nil, err
	}

	// 先注册脱敏值，校验失败的日志中也不会出现凭证
	log.SetRedactions(configs.MaskableSecrets(&cfg))

	if err := configs.ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	rr, err := route.New(cfg.Routing.BucketStrategy, cfg.Routing.KeyStrategy, cfg.S3.BucketName)
	if err != nil {
		return nil, err
	}

	l.Info().
		Str("config", v.ConfigFileUsed()).
		Str("driver", cfg.S3.Driver).
		Str("bucket_strategy", rr.BucketStrategy()).
		Str("key_strategy", rr.KeyStrategy()).
		Stringer("credentials", creds.Credentials()).
		Msg("configuration loaded")

	return &Runtime{Config: cfg, Viper: v, Secrets: creds, Router: rr}, nil
}

type App struct {
	Engine  *gin.Engine
	Config  configs.AppConfig
	Factory *s3c.Factory
}

// NewApp 初始化应用，同一进程内只能调用一次.
func NewApp(opts Options) (*App, error) {
	rt, err := Bootstrap(&overlay, opts)
	if err != nil {
		return nil, err
	}

	cfg := rt.Config

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(cfg.Server.Mode)
	}

	// 初始化监控
	metrics.InitMetrics(cfg.Metrics)

	// 初始化追踪
	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	factory := s3c.NewFactory(cfg.CircuitBreaker, s3c.WithLogger(l.With().Str("component", "storage").Logger()))

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(cfg.Auth),
		middleware.GinLoggerMiddleware(cfg.Auth),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(cfg.Server, cfg.Auth),
		middleware.RateLimitMiddleware(cfg.RateLimit, cfg.Auth),
		// 对象内容原样透传
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{handle.ObjectsPath})),
	)

	metrics.RegisterRoutes(cfg.Metrics, engine)

	storage := middleware.StorageContextMiddleware(middleware.StorageDeps{
		Config:  cfg,
		Secrets: rt.Secrets,
		Router:  rt.Router,
		Factory: factory,
		Logger:  l.With().Str("component", "route").Logger(),
	})

	router.Register(engine, storage, factory)

	return &App{Engine: engine, Config: cfg, Factory: factory}, nil
}

// Run 启动 HTTP 服务，ctx 结束后优雅关闭，最长等待 server.timeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.GetTimeoutDuration())
	defer cancel()

	log.Logger().Info().Msg("shutting down")

	err := srv.Shutdown(shutdownCtx)
	if tErr := tracing.ShutdownTracer(shutdownCtx); tErr != nil {
		err = errors.Join(err, tErr)
	}

	return err
}
