package configs

import (
	"github.com/spf13/viper"

	"github.com/yeisme/uploadgate/pkg/route"
)

const (
	DefaultBucketStrategy = route.BucketOverrideElseDefault // metadata.bucket_name 优先，否则默认 bucket
	DefaultKeyStrategy    = route.KeyOverrideElseFilename   // metadata.dynamic_key 优先，否则文件名
	DefaultMaxUploadSize  = 5 << 30                         // 单个对象上限 5GiB，对应 S3 单次 PUT 上限
	DefaultMaxBodyBytes   = 64 << 10                        // JSON 形式上传参数的请求体上限
)

// RoutingConfig 目标 bucket/key 的解析策略. 策略名称在 route 包中注册.
type RoutingConfig struct {
	BucketStrategy string `mapstructure:"bucket_strategy" rule:"required"`
	KeyStrategy    string `mapstructure:"key_strategy"    rule:"required"`
	MaxUploadSize  int64  `mapstructure:"max_upload_size" rule:"min=0"` // 0 表示不限制
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"  rule:"min=1"`
}

func (c *RoutingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("routing.bucket_strategy", DefaultBucketStrategy)
	v.SetDefault("routing.key_strategy", DefaultKeyStrategy)
	v.SetDefault("routing.max_upload_size", DefaultMaxUploadSize)
	v.SetDefault("routing.max_body_bytes", DefaultMaxBodyBytes)
}
