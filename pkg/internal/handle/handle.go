// Package handle 提供 HTTP 请求处理器的实现. 存储相关处理器依赖存储上下文中间件挂载的 UploadContext.
package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "github.com/yeisme/uploadgate/pkg/context"
	"github.com/yeisme/uploadgate/pkg/log"
	"github.com/yeisme/uploadgate/pkg/middleware"
)

// uploadContext 取出存储上下文中间件挂载的上下文，缺失说明路由没有挂中间件.
func uploadContext(c *gin.Context) (*appctx.UploadContext, bool) {
	uc, ok := middleware.GetUploadContext(c)
	if !ok {
		log.Logger().Error().Str("path", c.FullPath()).Msg("upload context missing, storage middleware not installed")
		c.JSON(http.StatusInternalServerError, middleware.ErrorResponse{Error: "upload context missing", Kind: "internal"})

		return nil, false
	}

	return uc, true
}

func storageError(c *gin.Context, op string, err error) {
	logger := appctx.WithTraceContext(c.Request.Context(), *log.Logger())
	logger.Error().Err(err).Str("op", op).Msg("storage operation failed")

	middleware.AbortWithError(c, err)
}
