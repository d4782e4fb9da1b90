// Package secret 解析对象存储凭证.
//
// 每个值的查找顺序：调用方覆盖 → 配置（含 UPLOADGATE_S3_* 环境变量）→ AWS 标准环境变量 → 占位值.
// 解析永不失败，缺失时退化为明显不安全的占位值 minioadmin；是否允许占位值由上层（configs.ValidateConfig
// 在 release 模式下）决定. 结果在进程内只解析一次，之后只读.
package secret

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yeisme/uploadgate/pkg/configs"
)

// Source 凭证值的来源.
type Source string

const (
	SourceOverride    Source = "override"
	SourceConfig      Source = "config"
	SourcePlaceholder Source = "placeholder"
	SourceNone        Source = "none"
)

// 约定俗成的 AWS 环境变量.
const (
	EnvAWSAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvAWSSessionToken    = "AWS_SESSION_TOKEN"
)

// Credentials 解析后的凭证.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	SessionToken string
	KeySource    Source
	SecretSource Source
}

// Empty 访问密钥与私钥都为空.
func (c Credentials) Empty() bool {
	return c.AccessKey == "" && c.SecretKey == ""
}

// IsPlaceholder 任一值来自占位默认值.
func (c Credentials) IsPlaceholder() bool {
	return c.KeySource == SourcePlaceholder || c.SecretSource == SourcePlaceholder
}

// Maskable 返回需要在日志中脱敏的值.
func (c Credentials) Maskable() []string {
	var out []string

	for _, s := range []string{c.AccessKey, c.SecretKey, c.SessionToken} {
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

// Override 转换为配置覆盖项，供 configs.ApplyOverrides 使用.
func (c Credentials) Override() *configs.CredentialOverride {
	return &configs.CredentialOverride{
		AccessKeyID:     c.AccessKey,
		SecretAccessKey: c.SecretKey,
		SessionToken:    c.SessionToken,
	}
}

// String 只输出来源与掩码，避免凭证被 %v 打印.
func (c Credentials) String() string {
	return "access_key=" + Mask(c.AccessKey) + "(" + string(c.KeySource) + ") " +
		"secret_key=" + Mask(c.SecretKey) + "(" + string(c.SecretSource) + ")"
}

// Mask 返回掩码指示，不泄露任何字符.
func Mask(v string) string {
	if v == "" {
		return "<empty>"
	}

	return configs.MaskedValue
}

// LookupFunc 环境变量查找函数，签名同 os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Resolver 凭证解析器，并发安全.
type Resolver struct {
	cfg      configs.S3Config
	override *configs.CredentialOverride
	lookup   LookupFunc
	logger   zerolog.Logger

	once  sync.Once
	creds Credentials
}

// Option Resolver 选项.
type Option func(*Resolver)

// WithLookupEnv 替换环境变量查找函数，测试时使用.
func WithLookupEnv(fn LookupFunc) Option {
	return func(r *Resolver) {
		r.lookup = fn
	}
}

// WithOverride 设置调用方提供的凭证，优先级最高；nil 表示不覆盖.
func WithOverride(o *configs.CredentialOverride) Option {
	return func(r *Resolver) {
		r.override = o
	}
}

// WithLogger 设置诊断日志输出.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver 创建凭证解析器，解析延迟到第一次调用.
func NewResolver(cfg configs.S3Config, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		lookup: os.LookupEnv,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveKey 返回访问密钥.
func (r *Resolver) ResolveKey() string {
	return r.Credentials().AccessKey
}

// ResolveSecret 返回私钥.
func (r *Resolver) ResolveSecret() string {
	return r.Credentials().SecretKey
}

// Credentials 返回解析后的凭证，首次调用时解析并记录诊断日志.
func (r *Resolver) Credentials() Credentials {
	r.once.Do(r.resolve)

	return r.creds
}

func (r *Resolver) resolve() {
	var ov configs.CredentialOverride
	if r.override != nil {
		ov = *r.override
	}

	key, keySrc := r.pick("access_key", ov.AccessKeyID, r.cfg.AccessKeyID, EnvAWSAccessKeyID, true)
	sec, secSrc := r.pick("secret_key", ov.SecretAccessKey, r.cfg.SecretAccessKey, EnvAWSSecretAccessKey, true)
	tok, _ := r.pick("session_token", ov.SessionToken, r.cfg.SessionToken, EnvAWSSessionToken, false)

	r.creds = Credentials{
		AccessKey:    key,
		SecretKey:    sec,
		SessionToken: tok,
		KeySource:    keySrc,
		SecretSource: secSrc,
	}
}

// pick 按优先级选择一个值并记录来源，日志中只出现掩码.
func (r *Resolver) pick(name, override, configured, env string, placeholder bool) (string, Source) {
	var (
		val string
		src Source
	)

	switch {
	case override != "":
		val, src = override, SourceOverride
	case configured != "":
		val, src = configured, SourceConfig
	default:
		if v, ok := r.lookup(env); ok && v != "" {
			val, src = v, Source("env:"+env)
		} else if placeholder {
			val, src = configs.PlaceholderCredential, SourcePlaceholder
		} else {
			val, src = "", SourceNone
		}
	}

	switch src {
	case SourceNone:
	case SourcePlaceholder:
		r.logger.Warn().Str("credential", name).Str("source", string(src)).Str("value", Mask(val)).
			Msg("storage credential not configured, using insecure placeholder")
	default:
		r.logger.Info().Str("credential", name).Str("source", string(src)).Str("value", Mask(val)).
			Msg("storage credential resolved")
	}

	return val, src
}
