// Package router 管理路由配置，将路径和处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/internal/handle"
)

// Register 绑定全部业务路由. storage 为存储上下文中间件，只挂在 /s3 路由组上.
//
//	GET    /api/v1/health                 -> Health
//	POST   /s3/params[/:resource_id]      -> PresignPost
//	PUT    /s3/objects[/:resource_id]     -> PutObject
//	GET    /s3/objects[/:resource_id]     -> GetObjectURL
//	HEAD   /s3/objects[/:resource_id]     -> HeadObject
//	DELETE /s3/objects[/:resource_id]     -> DeleteObject
func Register(r *gin.Engine, storage gin.HandlerFunc, health handle.BreakerStater) {
	RegisterHealthCheckRoute(r.Group("/api/v1"), health)
	RegisterS3Routes(r.Group("/s3", storage))
}

// RegisterS3Routes 注册对象存储路由，调用方负责在路由组上挂载存储上下文中间件.
func RegisterS3Routes(g *gin.RouterGroup) {
	for _, p := range []string{"/params", "/params/:resource_id"} {
		g.POST(p, handle.PresignPost)
	}

	for _, p := range []string{"/objects", "/objects/:resource_id"} {
		g.PUT(p, handle.PutObject)
		g.GET(p, handle.GetObjectURL)
		g.HEAD(p, handle.HeadObject)
		g.DELETE(p, handle.DeleteObject)
	}
}
