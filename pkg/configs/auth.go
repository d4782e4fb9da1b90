package configs

import "github.com/spf13/viper"

const (
	DefaultAuthTokenHeader = "uppy-auth-token"
	DefaultAuthTokenQuery  = "uppyAuthToken"
)

// AuthConfig 控制上传令牌的提取方式. 令牌本身的校验由上游完成，这里只负责透传.
type AuthConfig struct {
	TokenHeader  string `mapstructure:"token_header"  rule:"required"` // 优先读取的请求头
	TokenQuery   string `mapstructure:"token_query"   rule:"required"` // 请求头缺失时读取的 query 参数
	RequireToken bool   `mapstructure:"require_token"`                 // 缺少令牌时直接返回 401
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.token_header", DefaultAuthTokenHeader)
	v.SetDefault("auth.token_query", DefaultAuthTokenQuery)
	v.SetDefault("auth.require_token", false)
}
