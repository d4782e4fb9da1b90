// Package s3 按请求构建绑定到 (bucket, key) 的对象存储客户端.
//
// 两种客户端：ObjectClient 用于服务端直传、查询、删除与预签名下载；PostPresigner 用于生成浏览器表单直传
// 使用的 presigned POST. 构建过程不访问网络（显式指定 region），每个请求构建一次，共享同一个
// http.Transport 与进程级熔断器.
//
// 驱动：minio（默认，minio-go）与 aws（aws-sdk-go-v2）.
package s3

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/errs"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/secret"
)

// 支持的驱动.
const (
	DriverMinio = "minio"
	DriverAWS   = "aws"
)

// ClientKind 客户端种类.
type ClientKind int

const (
	KindStandard ClientKind = iota
	KindPresignedPost
)

func (k ClientKind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindPresignedPost:
		return "presigned-post"
	default:
		return "unknown"
	}
}

// Options 构建单个客户端所需的全部输入.
type Options struct {
	Decision      route.Decision
	Credentials   secret.Credentials
	Provider      configs.ProviderOptions
	PresignExpiry time.Duration // 预签名默认有效期，<=0 时使用 configs.DefaultS3PresignExpiry
}

// ObjectInfo 对象元信息.
type ObjectInfo struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// PostOptions presigned POST 的约束条件.
type PostOptions struct {
	Expires     time.Duration
	ContentType string
	MaxSize     int64             // 0 表示不限制
	Metadata    map[string]string // 以 x-amz-meta-* 字段写入对象
}

// PresignedPost 浏览器表单直传所需的 URL 与表单字段.
type PresignedPost struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	ExpiresIn int64             `json:"expires_in"` // 秒
}

// Client 两种客户端的公共部分.
type Client interface {
	Driver() string
	Bucket() string
	Key() string
}

// ObjectClient 绑定到单个对象的标准客户端.
type ObjectClient interface {
	Client
	PutObject(ctx context.Context, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	StatObject(ctx context.Context) (ObjectInfo, error)
	RemoveObject(ctx context.Context) error
	PresignedGetURL(ctx context.Context, ttl time.Duration) (string, error)
}

// PostPresigner 绑定到单个对象的 presigned POST 客户端.
type PostPresigner interface {
	Client
	PresignPost(ctx context.Context, opts PostOptions) (PresignedPost, error)
}

// Factory 客户端工厂，创建后只读，可并发使用.
type Factory struct {
	transport *http.Transport
	breaker   *breaker
	logger    zerolog.Logger
}

// FactoryOption Factory 选项.
type FactoryOption func(*Factory)

// WithLogger 设置工厂日志.
func WithLogger(l zerolog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = l
	}
}

// WithTransport 替换共享的 http.Transport.
func WithTransport(tr *http.Transport) FactoryOption {
	return func(f *Factory) {
		f.transport = tr
	}
}

// NewFactory 创建工厂. cb.Enabled 为 false 时不使用熔断.
func NewFactory(cb configs.CircuitBreakerConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		breaker: newBreaker(cb),
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.transport == nil {
		f.transport = defaultTransport()
	}

	return f
}

// Build 按 kind 构建客户端，返回值可断言为 ObjectClient 或 PostPresigner.
func (f *Factory) Build(ctx context.Context, opts Options, kind ClientKind) (Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Credentials.Empty() {
		return nil, errs.NewConfiguration("storage credentials are empty", "s3.access_key_id", "s3.secret_access_key")
	}

	if opts.Decision.Bucket == "" || opts.Decision.Key == "" {
		return nil, errs.NewValidation("decision", "bucket and key are required to build a storage client")
	}

	be, err := f.newBackend(opts)
	if err != nil {
		return nil, err
	}

	base := bound{
		backend: be,
		breaker: f.breaker,
		bucket:  opts.Decision.Bucket,
		key:     opts.Decision.Key,
		expiry:  clampTTL(opts.PresignExpiry, configs.DefaultS3PresignExpiry),
	}

	f.logger.Debug().Str("driver", be.driver()).Str("kind", kind.String()).
		Str("bucket", base.bucket).Str("key", base.key).Msg("storage client built")

	switch kind {
	case KindStandard:
		return &objectClient{bound: base}, nil
	case KindPresignedPost:
		return &postPresigner{bound: base}, nil
	default:
		return nil, errs.NewConfiguration("unknown client kind " + kind.String())
	}
}

// BuildStandard 构建标准客户端.
func (f *Factory) BuildStandard(ctx context.Context, opts Options) (ObjectClient, error) {
	c, err := f.Build(ctx, opts, KindStandard)
	if err != nil {
		return nil, err
	}

	return c.(ObjectClient), nil
}

// BuildPresignPost 构建 presigned POST 客户端.
func (f *Factory) BuildPresignPost(ctx context.Context, opts Options) (PostPresigner, error) {
	c, err := f.Build(ctx, opts, KindPresignedPost)
	if err != nil {
		return nil, err
	}

	return c.(PostPresigner), nil
}

func (f *Factory) newBackend(opts Options) (backend, error) {
	driver := opts.Provider.Driver
	if driver == "" {
		driver = DriverMinio
	}

	switch driver {
	case DriverMinio:
		return newMinioBackend(opts, f.transport)
	case DriverAWS:
		return newAWSBackend(opts, f.transport)
	default:
		return nil, errs.NewConfiguration("unknown storage driver \""+driver+"\"", "s3.driver")
	}
}

// defaultTransport 所有请求级客户端共享的连接池.
func defaultTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 256
	tr.MaxIdleConnsPerHost = 64
	tr.IdleConnTimeout = 90 * time.Second
	tr.ResponseHeaderTimeout = 60 * time.Second
	tr.DisableCompression = true

	return tr
}

// clampTTL ttl<=0 时使用 def，超过上限时截断.
func clampTTL(ttl, def time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = def
	}

	if ttl > configs.MaxS3PresignExpiry {
		ttl = configs.MaxS3PresignExpiry
	}

	return ttl
}

// BreakerState 返回共享熔断器的状态，用于健康检查.
func (f *Factory) BreakerState() string {
	return f.breaker.State().String()
}
