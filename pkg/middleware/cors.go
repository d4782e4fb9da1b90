package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/configs"
)

// CORSMiddleware CORS中间件. 浏览器端上传组件需要读取 ETag 与 Location，并发送令牌头.
func CORSMiddleware(cfg configs.ServerConfig, auth configs.AuthConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()

	origins := splitList(cfg.CORSOrigins)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}

	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"}
	config.AddAllowHeaders(auth.TokenHeader, "Upload-Metadata", "Upload-Length", "Upload-Offset",
		"Tus-Resumable", HeaderRequestID, "Uppy-Versions")
	config.ExposeHeaders = []string{"ETag", "Location", "Content-Length", HeaderRequestID}
	config.MaxAge = 12 * time.Hour

	return cors.New(config)
}

func splitList(s string) []string {
	var out []string

	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
