package upload_test

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/yeisme/uploadgate/pkg/errs"
	"github.com/yeisme/uploadgate/pkg/upload"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// TestParseTusMetadata 测试 tus 元数据头的解析.
func TestParseTusMetadata(t *testing.T) {
	h := "filename " + b64("report.csv") + ", bucket_name " + b64("bucket-a") + ",is_confidential"

	meta, err := upload.ParseTusMetadata(h)
	if err != nil {
		t.Fatalf("ParseTusMetadata: %v", err)
	}

	if meta["filename"] != "report.csv" || meta["bucket_name"] != "bucket-a" {
		t.Errorf("unexpected metadata %v", meta)
	}

	if v, ok := meta["is_confidential"]; !ok || v != "" {
		t.Errorf("key without value should map to empty string, got %q (%v)", v, ok)
	}

	for _, bad := range []string{"filename !!!", "a " + b64("x") + ",a " + b64("y")} {
		if _, err := upload.ParseTusMetadata(bad); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%q: expected ValidationError, got %v", bad, err)
		}
	}
}

// TestFromRequestTus tus 请求从元数据头取文件名与路由键.
func TestFromRequestTus(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/files", nil)
	r.Header.Set(upload.HeaderTusMetadata, "filename "+b64("a.png")+",filetype "+b64("image/png")+",dynamic_key "+b64("x/a.png"))

	p, err := upload.FromRequest(r, 1024)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}

	if p.Filename != "a.png" || p.ContentType != "image/png" || p.Metadata.Get("dynamic_key") != "x/a.png" {
		t.Errorf("unexpected params %+v", p)
	}
}

// TestFromRequestQuery query 中的 metadata 为 JSON 对象，非字符串值按 JSON 编码.
func TestFromRequestQuery(t *testing.T) {
	q := url.Values{}
	q.Set("filename", "report.csv")
	q.Set("type", "text/csv")
	q.Set("metadata", `{"bucket_name":"bucket-a","resource_id":42,"skip":null}`)

	r := httptest.NewRequest(http.MethodGet, "/s3/objects?"+q.Encode(), nil)

	p, err := upload.FromRequest(r, 1024)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}

	if p.Filename != "report.csv" || p.ContentType != "text/csv" {
		t.Errorf("unexpected params %+v", p)
	}

	if p.Metadata["bucket_name"] != "bucket-a" || p.Metadata["resource_id"] != "42" {
		t.Errorf("unexpected metadata %v", p.Metadata)
	}

	if _, ok := p.Metadata["skip"]; ok {
		t.Error("null value should be dropped")
	}

	r = httptest.NewRequest(http.MethodGet, "/s3/objects?metadata=%5B1%5D", nil)
	if _, err := upload.FromRequest(r, 1024); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ValidationError for non-object metadata, got %v", err)
	}
}

// TestFromRequestBody POST JSON body 覆盖 query，且 body 仍可被下游读取.
func TestFromRequestBody(t *testing.T) {
	raw := `{"filename":"body.txt","type":"text/plain","metadata":{"dynamic_key":"folder/body.txt"}}`

	r := httptest.NewRequest(http.MethodPost, "/s3/params?filename=query.txt", strings.NewReader(raw))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")

	p, err := upload.FromRequest(r, 1024)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}

	if p.Filename != "body.txt" || p.ContentType != "text/plain" || p.Metadata["dynamic_key"] != "folder/body.txt" {
		t.Errorf("unexpected params %+v", p)
	}

	rest, _ := io.ReadAll(r.Body)
	if string(rest) != raw {
		t.Errorf("body not restored: %q", rest)
	}
}

// TestFromRequestBodyLimit 超过上限的 body 返回校验错误.
func TestFromRequestBodyLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/s3/params", strings.NewReader(`{"filename":"`+strings.Repeat("a", 64)+`"}`))
	r.Header.Set("Content-Type", "application/json")

	if _, err := upload.FromRequest(r, 16); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

// TestFromRequestPutBodyUntouched PUT 的 body 是文件内容，不会被解析.
func TestFromRequestPutBodyUntouched(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/s3/objects?filename=a.json", strings.NewReader(`{"filename":"evil"}`))
	r.Header.Set("Content-Type", "application/json")

	p, err := upload.FromRequest(r, 1024)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}

	if p.Filename != "a.json" {
		t.Errorf("unexpected filename %q", p.Filename)
	}
}
