// Package configs 管理应用程序配置，包括对象存储、路由策略、服务器、日志等配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv），并可被 UPLOADGATE_ 前缀的环境变量覆盖.
//
// 配置在进程启动时加载一次，随后经过一次 Overlay（见 overlay.go）与校验（见 validate.go），
// 之后作为只读值显式传递给中间件，不再提供全局可变实例，也不启用热重载.
//
// Example:
//
//	cfg, v, err := configs.Load("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg = configs.ApplyOverrides(cfg, configs.Overrides{KeyStrategy: ptr("resource-namespaced")})
//	if err := configs.ValidateConfig(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(v.ConfigFileUsed(), cfg.S3.GetEndpointURL())
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 UPLOADGATE_S3_BUCKET_NAME.
const EnvPrefix = "UPLOADGATE"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		Routing        RoutingConfig        `mapstructure:"routing"`         // RoutingConfig 目标 bucket/key 解析策略
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置
		Auth           AuthConfig           `mapstructure:"auth"`            // AuthConfig 上传令牌提取
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 存储调用熔断配置
	}
)

// Load 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv).
// path 可以是配置文件，也可以是目录；目录下找不到配置文件时只使用默认值与环境变量.
func Load(path string) (AppConfig, *viper.Viper, error) {
	v := viper.New()
	setAllDefaults(v)

	info, statErr := os.Stat(path)

	switch {
	case path != "" && statErr == nil && !info.IsDir():
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		v.SetConfigFile(path)
	case path != "" && filepath.Ext(path) != "" && os.IsNotExist(statErr):
		return AppConfig{}, nil, fmt.Errorf("config file %s: %w", path, statErr)
	default:
		v.SetConfigName("config")

		if path != "" {
			v.AddConfigPath(path)
			v.AddConfigPath(filepath.Join(path, "configs"))
		}

		for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				break
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, v, nil
}

// Default 返回只包含默认值的配置，主要用于测试与 CLI 的 dry-run.
func Default() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	// 默认值均为基础类型，解码不会失败
	_ = v.Unmarshal(&cfg)

	return cfg
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var (
		s3Config       S3Config
		routingConfig  RoutingConfig
		serverConfig   ServerConfig
		authConfig     AuthConfig
		logConfig      LogConfig
		metricsConfig  MetricsConfig
		tracingConfig  TracingConfig
		rateLimit      RateLimitConfig
		circuitBreaker CircuitBreakerConfig
	)

	s3Config.setDefaults(v)
	routingConfig.setDefaults(v)
	serverConfig.setDefaults(v)
	authConfig.setDefaults(v)
	logConfig.setDefaults(v)
	metricsConfig.setDefaults(v)
	tracingConfig.setDefaults(v)
	rateLimit.setDefaults(v)
	circuitBreaker.setDefaults(v)
}
