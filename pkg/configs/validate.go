package configs

import (
	"net/url"
	"sort"
	"strings"

	"github.com/yeisme/uploadgate/pkg/errs"
	"github.com/yeisme/uploadgate/pkg/route"
	"github.com/yeisme/uploadgate/pkg/rule"
)

// PlaceholderCredential 未配置凭证时使用的占位值，仅适用于本地 MinIO，生产模式下校验失败.
const PlaceholderCredential = "minioadmin"

// ValidateConfig 启动时调用一次. 返回的 *errs.ConfigurationError 列出所有缺失或非法的字段，
// 校验失败时服务不得开始接收流量.
func ValidateConfig(cfg *AppConfig) error {
	if cfg == nil {
		return errs.NewConfiguration("config is nil")
	}

	invalid := map[string]string{}

	for field, msg := range rule.Errors(rule.ValidateStruct(cfg)) {
		invalid[field] = msg
	}

	if !route.HasBucketStrategy(cfg.Routing.BucketStrategy) {
		invalid["routing.bucket_strategy"] = "unknown strategy " + quote(cfg.Routing.BucketStrategy)
	}

	if !route.HasKeyStrategy(cfg.Routing.KeyStrategy) {
		invalid["routing.key_strategy"] = "unknown strategy " + quote(cfg.Routing.KeyStrategy)
	}

	if cfg.S3.BucketName != "" {
		if err := route.CheckBucketName(cfg.S3.BucketName); err != nil {
			invalid["s3.bucket_name"] = err.Error()
		}
	}

	if cfg.S3.Endpoint != "" {
		if _, err := url.Parse(cfg.S3.GetEndpointURL()); err != nil {
			invalid["s3.endpoint"] = err.Error()
		}
	}

	if cfg.S3.AccessKeyID == "" && cfg.S3.SecretAccessKey == "" {
		invalid["s3.access_key_id"] = "credentials are empty"
		invalid["s3.secret_access_key"] = "credentials are empty"
	}

	if cfg.Server.IsRelease() {
		if cfg.S3.AccessKeyID == PlaceholderCredential {
			invalid["s3.access_key_id"] = "placeholder credential in release mode"
		}

		if cfg.S3.SecretAccessKey == PlaceholderCredential {
			invalid["s3.secret_access_key"] = "placeholder credential in release mode"
		}
	}

	if len(invalid) == 0 {
		return nil
	}

	fields := make([]string, 0, len(invalid))
	for f := range invalid {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	reasons := make([]string, 0, len(fields))
	for _, f := range fields {
		reasons = append(reasons, f+": "+invalid[f])
	}

	return errs.NewConfiguration(strings.Join(reasons, "; "), fields...)
}

func quote(s string) string {
	return "\"" + s + "\""
}
