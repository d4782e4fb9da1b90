package middleware

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid"

	appctx "github.com/yeisme/uploadgate/pkg/context"
)

// HeaderRequestID 请求 ID 头.
const HeaderRequestID = "X-Request-Id"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newRequestID 生成 ULID. Monotonic entropy 不是并发安全的.
func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// RequestIDMiddleware 沿用上游传入的请求 ID，否则生成一个，并写回响应头.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = newRequestID()
		}

		c.Header(HeaderRequestID, id)
		c.Set(string(appctx.RequestIDKey), id)
		c.Request = c.Request.WithContext(appctx.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}
