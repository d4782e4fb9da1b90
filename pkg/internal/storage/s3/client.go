package s3

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/uploadgate/pkg/metrics"
)

const tracerName = "github.com/yeisme/uploadgate/pkg/internal/storage/s3"

// backend 驱动需要实现的原始操作，返回的错误已归一化为本包的哨兵错误.
type backend interface {
	driver() string
	put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error)
	stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	remove(ctx context.Context, bucket, key string) error
	presignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	presignPost(ctx context.Context, bucket, key string, opts PostOptions) (PresignedPost, error)
}

// bound 绑定到单个 (bucket, key) 的公共部分.
type bound struct {
	backend backend
	breaker *breaker
	bucket  string
	key     string
	expiry  time.Duration
}

func (b *bound) Driver() string { return b.backend.driver() }
func (b *bound) Bucket() string { return b.bucket }
func (b *bound) Key() string    { return b.key }

type objectClient struct {
	bound
}

func (c *objectClient) PutObject(ctx context.Context, r io.Reader, size int64, contentType string) (ObjectInfo, error) {
	return invoke(ctx, &c.bound, "put", func(ctx context.Context) (ObjectInfo, error) {
		return c.backend.put(ctx, c.bucket, c.key, r, size, contentType)
	})
}

func (c *objectClient) StatObject(ctx context.Context) (ObjectInfo, error) {
	return invoke(ctx, &c.bound, "stat", func(ctx context.Context) (ObjectInfo, error) {
		return c.backend.stat(ctx, c.bucket, c.key)
	})
}

func (c *objectClient) RemoveObject(ctx context.Context) error {
	_, err := invoke(ctx, &c.bound, "remove", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.remove(ctx, c.bucket, c.key)
	})

	return err
}

// PresignedGetURL ttl<=0 时使用客户端默认有效期.
func (c *objectClient) PresignedGetURL(ctx context.Context, ttl time.Duration) (string, error) {
	ttl = clampTTL(ttl, c.expiry)

	return invoke(ctx, &c.bound, "presign_get", func(ctx context.Context) (string, error) {
		return c.backend.presignGet(ctx, c.bucket, c.key, ttl)
	})
}

type postPresigner struct {
	bound
}

func (c *postPresigner) PresignPost(ctx context.Context, opts PostOptions) (PresignedPost, error) {
	opts.Expires = clampTTL(opts.Expires, c.expiry)

	post, err := invoke(ctx, &c.bound, "presign_post", func(ctx context.Context) (PresignedPost, error) {
		return c.backend.presignPost(ctx, c.bucket, c.key, opts)
	})
	if err != nil {
		return PresignedPost{}, err
	}

	post.ExpiresIn = int64(opts.Expires / time.Second)

	return post, nil
}

// invoke 在 span 与熔断器内执行一次存储调用并记录指标.
func invoke[T any](ctx context.Context, b *bound, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.driver", b.backend.driver()),
			attribute.String("storage.bucket", b.bucket),
			attribute.String("storage.key", b.key),
		),
	)
	defer span.End()

	out, err := execute(b.breaker, func() (T, error) { return fn(ctx) })

	metrics.StorageOperations.WithLabelValues(b.backend.driver(), op, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return out, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, ErrBreakerOpen):
		return "breaker_open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
