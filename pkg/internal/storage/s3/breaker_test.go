package s3

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	minio "github.com/minio/minio-go/v7"
	"github.com/sony/gobreaker"

	"github.com/yeisme/uploadgate/pkg/configs"
)

type fakeBackend struct {
	err   error
	calls int
}

func (f *fakeBackend) driver() string { return "fake" }

func (f *fakeBackend) put(context.Context, string, string, io.Reader, int64, string) (ObjectInfo, error) {
	f.calls++
	return ObjectInfo{}, f.err
}

func (f *fakeBackend) stat(_ context.Context, bucket, key string) (ObjectInfo, error) {
	f.calls++
	return ObjectInfo{Bucket: bucket, Key: key}, f.err
}

func (f *fakeBackend) remove(context.Context, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeBackend) presignGet(context.Context, string, string, time.Duration) (string, error) {
	f.calls++
	return "", f.err
}

func (f *fakeBackend) presignPost(context.Context, string, string, PostOptions) (PresignedPost, error) {
	f.calls++
	return PresignedPost{}, f.err
}

func testBreaker() *breaker {
	return newBreaker(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	})
}

// TestBreakerTrips 连续后端故障后熔断，之后的调用不再到达后端.
func TestBreakerTrips(t *testing.T) {
	be := &fakeBackend{err: wrapError(errors.New("connection refused"), ErrStatFailed)}
	c := &objectClient{bound: bound{backend: be, breaker: testBreaker(), bucket: "b", key: "k"}}

	for range 2 {
		if _, err := c.StatObject(context.Background()); !errors.Is(err, ErrStatFailed) {
			t.Fatalf("expected ErrStatFailed, got %v", err)
		}
	}

	if c.breaker.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", c.breaker.State())
	}

	if _, err := c.StatObject(context.Background()); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}

	if be.calls != 2 {
		t.Errorf("backend called %d times, want 2", be.calls)
	}
}

// TestBreakerIgnoresNotFound 对象不存在不计为后端故障.
func TestBreakerIgnoresNotFound(t *testing.T) {
	be := &fakeBackend{err: wrapError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, ErrStatFailed)}
	c := &objectClient{bound: bound{backend: be, breaker: testBreaker(), bucket: "b", key: "k"}}

	for range 5 {
		if _, err := c.StatObject(context.Background()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}

	if c.breaker.State() != gobreaker.StateClosed {
		t.Errorf("expected closed breaker, got %s", c.breaker.State())
	}
}

// TestBreakerDisabled 未启用时直接调用后端.
func TestBreakerDisabled(t *testing.T) {
	b := newBreaker(configs.CircuitBreakerConfig{Enabled: false})
	if b != nil {
		t.Fatal("expected nil breaker")
	}

	be := &fakeBackend{}
	c := &objectClient{bound: bound{backend: be, breaker: b, bucket: "b", key: "k"}}

	if err := c.RemoveObject(context.Background()); err != nil || be.calls != 1 {
		t.Errorf("RemoveObject() = %v, calls = %d", err, be.calls)
	}

	if b.State() != gobreaker.StateClosed {
		t.Errorf("nil breaker state = %s", b.State())
	}
}

// TestWrapError 测试 SDK 错误到哨兵错误的归一化.
func TestWrapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"minio no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}, ErrNotFound},
		{"minio no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, ErrNotFound},
		{"minio access denied", minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}, ErrAccessDenied},
		{"aws not found", &smithy.GenericAPIError{Code: "NotFound"}, ErrNotFound},
		{"aws forbidden", &smithy.GenericAPIError{Code: "Forbidden"}, ErrAccessDenied},
		{"canceled kept", context.Canceled, context.Canceled},
		{"fallback", errors.New("boom"), ErrUploadFailed},
	}

	for _, tc := range cases {
		if got := wrapError(tc.err, ErrUploadFailed); !errors.Is(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	if wrapError(nil, ErrUploadFailed) != nil {
		t.Error("nil error should stay nil")
	}
}

// TestMinioEndpoint 测试端点中 scheme 的处理.
func TestMinioEndpoint(t *testing.T) {
	cases := []struct {
		in         configs.ProviderOptions
		wantHost   string
		wantSecure bool
	}{
		{configs.ProviderOptions{Endpoint: "https://minio.local:9000"}, "minio.local:9000", true},
		{configs.ProviderOptions{Endpoint: "http://minio.local:9000", UseSSL: true}, "minio.local:9000", false},
		{configs.ProviderOptions{Endpoint: "localhost:9000"}, "localhost:9000", false},
		{configs.ProviderOptions{Endpoint: "localhost:9000", UseSSL: true}, "localhost:9000", true},
		{configs.ProviderOptions{}, configs.AWSS3Endpoint, true},
	}

	for _, tc := range cases {
		host, secure, err := minioEndpoint(tc.in)
		if err != nil || host != tc.wantHost || secure != tc.wantSecure {
			t.Errorf("minioEndpoint(%q) = (%q, %v, %v)", tc.in.Endpoint, host, secure, err)
		}
	}
}

// TestClampTTL 测试有效期默认值与上限.
func TestClampTTL(t *testing.T) {
	if got := clampTTL(0, time.Minute); got != time.Minute {
		t.Errorf("clampTTL(0) = %s", got)
	}

	if got := clampTTL(48*time.Hour, time.Minute); got != configs.MaxS3PresignExpiry {
		t.Errorf("clampTTL(48h) = %s", got)
	}

	if got := clampTTL(time.Hour, time.Minute); got != time.Hour {
		t.Errorf("clampTTL(1h) = %s", got)
	}
}
