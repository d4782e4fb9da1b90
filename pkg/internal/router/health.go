package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup, s handle.BreakerStater) {
	g.GET("/health", handle.Health(s))
}
