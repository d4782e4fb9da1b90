package configs

// AppName 应用名称，用于日志、追踪与 S3 客户端 User-Agent.
const AppName = "uploadgate"

// AppVersion 构建时通过 -ldflags "-X github.com/yeisme/uploadgate/pkg/configs.AppVersion=..." 注入.
var AppVersion = "0.1.0"
