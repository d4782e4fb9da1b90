package context_test

import (
	"context"
	"testing"

	appctx "github.com/yeisme/uploadgate/pkg/context"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/urlbuilder"
)

type stubObject struct{ s3c.ObjectClient }

type stubPresign struct{ s3c.PostPresigner }

// TestWithUploadContextIncomplete 缺少任一客户端或 URL 构造器时不挂载.
func TestWithUploadContextIncomplete(t *testing.T) {
	obj, post := stubObject{}, stubPresign{}
	builder := urlbuilder.New(urlbuilder.Options{Host: "localhost"})

	cases := map[string]*appctx.UploadContext{
		"nil":            nil,
		"no storage":     {PresignClient: post, URLBuilder: builder},
		"no presign":     {StorageClient: obj, URLBuilder: builder},
		"no url builder": {StorageClient: obj, PresignClient: post},
	}

	for name, uc := range cases {
		ctx := appctx.WithUploadContext(context.Background(), uc)
		if _, ok := appctx.GetUploadContext(ctx); ok {
			t.Errorf("%s: incomplete context attached", name)
		}
	}

	full := &appctx.UploadContext{StorageClient: obj, PresignClient: post, URLBuilder: builder}

	got, ok := appctx.GetUploadContext(appctx.WithUploadContext(context.Background(), full))
	if !ok || got != full {
		t.Errorf("complete context not attached")
	}
}

// TestRequestID 请求 ID 的存取.
func TestRequestID(t *testing.T) {
	if id := appctx.GetRequestID(context.Background()); id != "" {
		t.Errorf("empty context id = %q", id)
	}

	ctx := appctx.WithRequestID(context.Background(), "01HZX")
	if id := appctx.GetRequestID(ctx); id != "01HZX" {
		t.Errorf("id = %q", id)
	}
}
