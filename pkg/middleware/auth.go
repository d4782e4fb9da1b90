package middleware

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/log"
)

// TokenFromRequest 读取上传令牌：请求头优先，缺失时读取 query 参数.
// 令牌只透传给下游，不在这里校验.
func TokenFromRequest(c *gin.Context, conf configs.AuthConfig) string {
	if t := strings.TrimSpace(c.GetHeader(conf.TokenHeader)); t != "" {
		return t
	}

	return strings.TrimSpace(c.Query(conf.TokenQuery))
}

// UserFromRequest 读取 oauth2-proxy 注入的用户标识，没有时返回空字符串.
func UserFromRequest(c *gin.Context) string {
	if u := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email")); u != "" {
		return u
	}

	return strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
}

// TokenFingerprint 令牌的不可逆短指纹，用于日志与限流键.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}

	return fmt.Sprintf("%016x", xxhash.Sum64String(token))
}

// redactQuery 返回去掉令牌值后的 query 字符串.
func redactQuery(raw, param string) string {
	if raw == "" || !strings.Contains(raw, param) {
		return raw
	}

	q, err := url.ParseQuery(raw)
	if err != nil {
		// 无法解析时整体丢弃，避免泄露
		return log.Redacted
	}

	if _, ok := q[param]; ok {
		q.Set(param, log.Redacted)
	}

	return q.Encode()
}
