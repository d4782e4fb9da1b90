package configs

import (
	"errors"
	"sync"
)

// ErrOverlayApplied 覆盖项在进程内已经应用过.
var ErrOverlayApplied = errors.New("configuration overlay already applied")

// CredentialOverride 调用方提供的默认凭证.
type CredentialOverride struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Overrides 调用方在进程初始化时提供的覆盖项. nil 字段表示不覆盖.
//
// 不同字段之间互不影响，与应用顺序无关；对同一字段重复覆盖时以最后一次为准.
// Provider 整体替换 S3 的提供方选项块（driver、endpoint、region、path_style、use_ssl）.
type Overrides struct {
	BucketStrategy *string
	KeyStrategy    *string
	DefaultBucket  *string
	Credentials    *CredentialOverride
	Provider       *ProviderOptions
}

// Merge 返回 o 与 next 合并后的覆盖项，next 中非 nil 的字段覆盖 o 中的同名字段.
func (o Overrides) Merge(next Overrides) Overrides {
	if next.BucketStrategy != nil {
		o.BucketStrategy = next.BucketStrategy
	}

	if next.KeyStrategy != nil {
		o.KeyStrategy = next.KeyStrategy
	}

	if next.DefaultBucket != nil {
		o.DefaultBucket = next.DefaultBucket
	}

	if next.Credentials != nil {
		o.Credentials = next.Credentials
	}

	if next.Provider != nil {
		o.Provider = next.Provider
	}

	return o
}

// IsZero 没有任何覆盖项.
func (o Overrides) IsZero() bool {
	return o == Overrides{}
}

// ApplyOverrides 把覆盖项合并进 base 的副本并返回，base 本身不会被修改.
// 对同一个 base 再次调用会得到只包含新覆盖项的结果：重新初始化是替换而不是叠加.
func ApplyOverrides(base AppConfig, o Overrides) AppConfig {
	// AppConfig 只包含值类型字段，赋值即为深拷贝
	cfg := base

	if o.BucketStrategy != nil {
		cfg.Routing.BucketStrategy = *o.BucketStrategy
	}

	if o.KeyStrategy != nil {
		cfg.Routing.KeyStrategy = *o.KeyStrategy
	}

	if o.DefaultBucket != nil {
		cfg.S3.BucketName = *o.DefaultBucket
	}

	if c := o.Credentials; c != nil {
		cfg.S3.AccessKeyID = c.AccessKeyID
		cfg.S3.SecretAccessKey = c.SecretAccessKey
		cfg.S3.SessionToken = c.SessionToken
	}

	if o.Provider != nil {
		cfg.S3.ProviderOptions = *o.Provider
	}

	return cfg
}

// Overlay 保证覆盖项在进程内只应用一次. 零值可用.
type Overlay struct {
	mu      sync.Mutex
	applied bool
}

// Apply 第一次调用返回 ApplyOverrides(base, o) 的结果，之后的调用返回 ErrOverlayApplied.
func (l *Overlay) Apply(base AppConfig, o Overrides) (AppConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.applied {
		return AppConfig{}, ErrOverlayApplied
	}

	l.applied = true

	return ApplyOverrides(base, o), nil
}
