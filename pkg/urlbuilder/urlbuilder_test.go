package urlbuilder_test

import (
	"testing"

	"github.com/yeisme/uploadgate/pkg/urlbuilder"
)

// TestBuild 测试前缀、implicit path 与 host 的组合.
func TestBuild(t *testing.T) {
	b := urlbuilder.New(urlbuilder.Options{
		Host:         "uploads.example.com",
		Protocol:     "https",
		Path:         "/companion",
		ImplicitPath: "/proxy/",
	})

	cases := []struct {
		name        string
		subPath     string
		external    bool
		excludeHost bool
		want        string
	}{
		{"internal", "/s3/params", false, false, "https://uploads.example.com/companion/s3/params"},
		{"external", "/s3/params", true, false, "https://uploads.example.com/proxy/companion/s3/params"},
		{"path only", "/s3/objects", false, true, "/companion/s3/objects"},
		{"external path only", "s3/objects", true, true, "/proxy/companion/s3/objects"},
		{"empty sub path", "", false, false, "https://uploads.example.com/companion"},
	}

	for _, tc := range cases {
		if got := b.Build(tc.subPath, tc.external, tc.excludeHost); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

// TestBuildDefaults 未配置协议与前缀时使用 http 与根路径.
func TestBuildDefaults(t *testing.T) {
	b := urlbuilder.New(urlbuilder.Options{Host: "localhost:8080"})

	if got := b.Build("/api/v1/health", true, false); got != "http://localhost:8080/api/v1/health" {
		t.Errorf("unexpected url %q", got)
	}

	if b.Host() != "localhost:8080" {
		t.Errorf("Host() = %q", b.Host())
	}
}
