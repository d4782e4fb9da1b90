package handle_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	appctx "github.com/yeisme/uploadgate/pkg/context"
	"github.com/yeisme/uploadgate/pkg/internal/handle"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/urlbuilder"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClient struct {
	bucket, key string

	putBody []byte
	putType string
	putErr  error

	stat    s3c.ObjectInfo
	statErr error

	removed   bool
	removeErr error

	getTTL time.Duration

	postOpts s3c.PostOptions
}

func (f *fakeClient) Driver() string { return s3c.DriverMinio }
func (f *fakeClient) Bucket() string { return f.bucket }
func (f *fakeClient) Key() string    { return f.key }

func (f *fakeClient) PutObject(_ context.Context, r io.Reader, size int64, contentType string) (s3c.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return s3c.ObjectInfo{}, fmt.Errorf("%w: %v", s3c.ErrUploadFailed, err)
	}

	if f.putErr != nil {
		return s3c.ObjectInfo{}, f.putErr
	}

	f.putBody, f.putType = b, contentType

	return s3c.ObjectInfo{Bucket: f.bucket, Key: f.key, Size: int64(len(b)), ETag: "abc123", ContentType: contentType}, nil
}

func (f *fakeClient) StatObject(context.Context) (s3c.ObjectInfo, error) {
	return f.stat, f.statErr
}

func (f *fakeClient) RemoveObject(context.Context) error {
	f.removed = true
	return f.removeErr
}

func (f *fakeClient) PresignedGetURL(_ context.Context, ttl time.Duration) (string, error) {
	f.getTTL = ttl
	return "https://s3.example.com/" + f.bucket + "/" + f.key + "?sig=1", nil
}

func (f *fakeClient) PresignPost(_ context.Context, opts s3c.PostOptions) (s3c.PresignedPost, error) {
	f.postOpts = opts

	return s3c.PresignedPost{
		URL:       "https://s3.example.com/" + f.bucket,
		Fields:    map[string]string{"key": f.key, "policy": "p"},
		ExpiresIn: int64(opts.Expires / time.Second),
	}, nil
}

func newUploadContext(fc *fakeClient, params func(*appctx.Options)) *appctx.UploadContext {
	opts := appctx.Options{
		Decision:      route.Decision{Bucket: fc.bucket, Key: fc.key},
		Driver:        s3c.DriverMinio,
		PresignExpiry: 15 * time.Minute,
	}

	if params != nil {
		params(&opts)
	}

	return &appctx.UploadContext{
		Options:       opts,
		StorageClient: fc,
		PresignClient: fc,
		URLBuilder:    urlbuilder.New(urlbuilder.Options{Host: "uploads.example.com", Protocol: "https"}),
	}
}

// newEngine 以测试中间件代替存储上下文中间件直接挂载 UploadContext.
func newEngine(uc *appctx.UploadContext) *gin.Engine {
	r := gin.New()

	r.Use(func(c *gin.Context) {
		if uc != nil {
			c.Set(string(appctx.UploadContextKey), uc)
		}

		c.Next()
	})

	r.POST("/s3/params", handle.PresignPost)
	r.PUT(handle.ObjectsPath, handle.PutObject)
	r.GET(handle.ObjectsPath, handle.GetObjectURL)
	r.HEAD(handle.ObjectsPath, handle.HeadObject)
	r.DELETE(handle.ObjectsPath, handle.DeleteObject)

	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// TestPresignPost 返回表单直传参数，并把 content type、大小上限与非路由元数据传给客户端.
func TestPresignPost(t *testing.T) {
	fc := &fakeClient{bucket: "bucket-a", key: "photos/cat.png"}
	uc := newUploadContext(fc, func(o *appctx.Options) {
		o.MaxUploadSize = 1 << 20
		o.Params.ContentType = "image/png"
		o.Params.Metadata = route.Metadata{
			route.MetaBucketName: "bucket-a",
			"owner":              "alice",
			"empty":              " ",
		}
	})

	w := serve(newEngine(uc), httptest.NewRequest(http.MethodPost, "/s3/params", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp handle.PresignPostResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Method != http.MethodPost || resp.Bucket != "bucket-a" || resp.Key != "photos/cat.png" {
		t.Errorf("unexpected response: %+v", resp)
	}

	if resp.Fields["key"] != "photos/cat.png" {
		t.Errorf("fields = %v", resp.Fields)
	}

	if fc.postOpts.ContentType != "image/png" || fc.postOpts.MaxSize != 1<<20 {
		t.Errorf("post options = %+v", fc.postOpts)
	}

	if len(fc.postOpts.Metadata) != 1 || fc.postOpts.Metadata["owner"] != "alice" {
		t.Errorf("metadata = %v, want only owner", fc.postOpts.Metadata)
	}
}

// TestPutObject 流式写入，返回 ETag 与指向同一对象的 Location.
func TestPutObject(t *testing.T) {
	fc := &fakeClient{bucket: "bucket-a", key: "docs/a.txt"}
	uc := newUploadContext(fc, func(o *appctx.Options) { o.Params.ContentType = "text/plain" })

	req := httptest.NewRequest(http.MethodPut, handle.ObjectsPath, strings.NewReader("hello"))

	w := serve(newEngine(uc), req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if string(fc.putBody) != "hello" || fc.putType != "text/plain" {
		t.Errorf("put body = %q type = %q", fc.putBody, fc.putType)
	}

	if got := w.Header().Get("ETag"); got != `"abc123"` {
		t.Errorf("ETag = %q", got)
	}

	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}

	if loc.Host != "uploads.example.com" || loc.Path != handle.ObjectsPath {
		t.Errorf("location = %s", loc)
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(loc.Query().Get("metadata")), &meta); err != nil {
		t.Fatalf("decode location metadata: %v", err)
	}

	if meta[route.MetaBucketName] != "bucket-a" || meta[route.MetaDynamicKey] != "docs/a.txt" {
		t.Errorf("location metadata = %v", meta)
	}
}

// TestPutObjectTooLarge 声明的长度与实际读取超过上限时都返回 413.
func TestPutObjectTooLarge(t *testing.T) {
	t.Run("declared", func(t *testing.T) {
		fc := &fakeClient{bucket: "b", key: "k"}
		uc := newUploadContext(fc, func(o *appctx.Options) { o.MaxUploadSize = 4 })

		w := serve(newEngine(uc), httptest.NewRequest(http.MethodPut, handle.ObjectsPath, strings.NewReader("too large")))
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}

		if fc.putBody != nil {
			t.Error("storage must not be called")
		}
	})

	t.Run("streamed", func(t *testing.T) {
		fc := &fakeClient{bucket: "b", key: "k"}
		uc := newUploadContext(fc, func(o *appctx.Options) { o.MaxUploadSize = 4 })

		req := httptest.NewRequest(http.MethodPut, handle.ObjectsPath, strings.NewReader("too large"))
		req.ContentLength = -1

		w := serve(newEngine(uc), req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}
	})
}

// TestGetObjectURL 预签名下载链接，有效期来自 expires 参数并受上限约束.
func TestGetObjectURL(t *testing.T) {
	cases := []struct {
		query string
		want  time.Duration
	}{
		{"", 15 * time.Minute},
		{"?expires=60", time.Minute},
		{"?expires=999999", 24 * time.Hour},
	}

	for _, tc := range cases {
		fc := &fakeClient{bucket: "b", key: "k"}

		w := serve(newEngine(newUploadContext(fc, nil)), httptest.NewRequest(http.MethodGet, handle.ObjectsPath+tc.query, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%q: status = %d", tc.query, w.Code)
		}

		var resp handle.ObjectURLResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if fc.getTTL != tc.want || resp.ExpiresIn != int64(tc.want/time.Second) {
			t.Errorf("%q: ttl = %v expires_in = %d, want %v", tc.query, fc.getTTL, resp.ExpiresIn, tc.want)
		}
	}

	w := serve(newEngine(newUploadContext(&fakeClient{}, nil)), httptest.NewRequest(http.MethodGet, handle.ObjectsPath+"?expires=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid expires: status = %d, want 400", w.Code)
	}
}

// TestHeadObject 元信息写入响应头，对象不存在时返回 404.
func TestHeadObject(t *testing.T) {
	fc := &fakeClient{bucket: "b", key: "k", stat: s3c.ObjectInfo{Size: 42, ETag: "e1", ContentType: "image/png"}}

	w := serve(newEngine(newUploadContext(fc, nil)), httptest.NewRequest(http.MethodHead, handle.ObjectsPath, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	if w.Header().Get("X-Object-Size") != "42" || w.Header().Get("ETag") != `"e1"` || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("headers = %v", w.Header())
	}

	fc.statErr = fmt.Errorf("%w: NoSuchKey", s3c.ErrNotFound)

	w = serve(newEngine(newUploadContext(fc, nil)), httptest.NewRequest(http.MethodHead, handle.ObjectsPath, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing object: status = %d, want 404", w.Code)
	}
}

// TestDeleteObject 删除成功返回 204，后端熔断时返回 503.
func TestDeleteObject(t *testing.T) {
	fc := &fakeClient{bucket: "b", key: "k"}

	w := serve(newEngine(newUploadContext(fc, nil)), httptest.NewRequest(http.MethodDelete, handle.ObjectsPath, nil))
	if w.Code != http.StatusNoContent || !fc.removed {
		t.Errorf("status = %d removed = %v", w.Code, fc.removed)
	}

	fc.removeErr = s3c.ErrBreakerOpen

	w = serve(newEngine(newUploadContext(fc, nil)), httptest.NewRequest(http.MethodDelete, handle.ObjectsPath, nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("breaker open: status = %d, want 503", w.Code)
	}
}

// TestMissingUploadContext 没有挂载存储上下文中间件时返回 500.
func TestMissingUploadContext(t *testing.T) {
	w := serve(newEngine(nil), httptest.NewRequest(http.MethodDelete, handle.ObjectsPath, nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

type stater string

func (s stater) BreakerState() string { return string(s) }

// TestHealth 熔断器打开时健康检查失败.
func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/ok", handle.Health(stater("closed")))
	r.GET("/open", handle.Health(stater("open")))

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil)); w.Code != http.StatusOK {
		t.Errorf("closed: status = %d", w.Code)
	}

	if w := serve(r, httptest.NewRequest(http.MethodGet, "/open", nil)); w.Code != http.StatusServiceUnavailable {
		t.Errorf("open: status = %d", w.Code)
	}
}
