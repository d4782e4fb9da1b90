package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort     = 8080      // 监听端口
	DefaultHost     = "0.0.0.0" // 监听地址
	DefaultMode     = "release" // gin 运行模式：debug、release、test
	DefaultTimeout  = 30        // 超时时间，单位秒
	DefaultProtocol = "http"    // 对外 URL 协议
)

type (
	// ServerConfig 服务器配置.
	// PublicHost/Protocol/Path/ImplicitPath 用于构造返回给客户端的 URL，PublicHost 为空时使用请求的 Host.
	ServerConfig struct {
		Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
		Host         string `mapstructure:"host"          rule:"ip"`
		Mode         string `mapstructure:"mode"          rule:"oneof=debug release test"`
		Timeout      int    `mapstructure:"timeout"       rule:"min=1,max=300"`
		PublicHost   string `mapstructure:"public_host"`
		Protocol     string `mapstructure:"protocol"      rule:"oneof=http https"`
		Path         string `mapstructure:"path"`
		ImplicitPath string `mapstructure:"implicit_path"` // 反向代理注入、服务自身看不到的前缀
		CORSOrigins  string `mapstructure:"cors_origins"`  // 逗号分隔，"*" 表示允许所有来源
	}
)

// GetTimeoutDuration 返回超时时间作为time.Duration.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// IsRelease 是否为生产模式.
func (s *ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

// setDefaults 设置服务器配置的默认值.
func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.mode", DefaultMode)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.public_host", "")
	v.SetDefault("server.protocol", DefaultProtocol)
	v.SetDefault("server.path", "")
	v.SetDefault("server.implicit_path", "")
	v.SetDefault("server.cors_origins", "*")
}
