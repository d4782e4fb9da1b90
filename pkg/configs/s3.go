package configs

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// ProviderOptions 存储提供方相关的选项块，Overlay 时整体替换.
type ProviderOptions struct {
	Driver    string `mapstructure:"driver"     rule:"required,oneof=minio aws"` // 客户端实现：minio 或 aws
	Endpoint  string `mapstructure:"endpoint"`                                   // 自定义端点，可带 http:// 或 https://
	Region    string `mapstructure:"region"     rule:"required"`
	PathStyle bool   `mapstructure:"path_style"` // 使用 path-style 寻址（MinIO 等需要）
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// S3Config 对象存储配置.
type S3Config struct {
	ProviderOptions `mapstructure:",squash"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	// BucketName 默认 bucket，为空表示必须由上传元数据 bucket_name 指定
	BucketName    string        `mapstructure:"bucket_name"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry" rule:"min=1s,max=24h"`
}

const (
	DefaultS3Driver        = "minio"
	DefaultS3Endpoint      = "localhost:9000"   // 默认S3端点
	DefaultS3UseSSL        = false              // 默认是否使用SSL
	DefaultS3PathStyle     = true               // MinIO 默认使用 path-style
	DefaultS3BucketName    = ""                 // 默认不配置 bucket
	DefaultS3Region        = "us-east-1"        // 默认区域
	DefaultS3PresignExpiry = 15 * time.Minute   // 预签名有效期
	MaxS3PresignExpiry     = 24 * time.Hour     // 预签名有效期上限
	DefaultS3Scheme        = "http"             // 端点未带 scheme 且未开启 SSL 时使用
	AWSS3Endpoint          = "s3.amazonaws.com" // minio 驱动未配置端点时访问 AWS
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	if u, err := url.Parse(c.Endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return u.String()
	}

	scheme := DefaultS3Scheme
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.driver", DefaultS3Driver)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.session_token", "")
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.path_style", DefaultS3PathStyle)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.presign_expiry", DefaultS3PresignExpiry)
}
