package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/yeisme/uploadgate/pkg/configs"
)

// BreakerStater 返回对象存储熔断器状态.
type BreakerStater interface {
	BreakerState() string
}

// Health 健康检查. 熔断器打开时返回 503，本身不访问对象存储.
func Health(s BreakerStater) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := s.BreakerState()

		body := gin.H{
			"component": "s3",
			"status":    "ok",
			"breaker":   state,
			"version":   configs.AppVersion,
		}

		if state == gobreaker.StateOpen.String() {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)

			return
		}

		c.JSON(http.StatusOK, body)
	}
}
