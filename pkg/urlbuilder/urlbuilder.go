// Package urlbuilder 构造返回给上传客户端的服务自身 URL.
//
// 服务可能部署在反向代理之后：path 是服务挂载的前缀，implicit_path 是代理注入、
// 服务自身看不到的前缀，只出现在对外（external）URL 中.
package urlbuilder

import "strings"

// Options 构造 Builder 的参数.
type Options struct {
	Host         string // 对外主机名，可带端口
	Protocol     string // http 或 https，为空时为 http
	Path         string
	ImplicitPath string
}

// Builder 请求级 URL 构造器，只读.
type Builder struct {
	host         string
	protocol     string
	path         string
	implicitPath string
}

// New 创建 Builder.
func New(opts Options) *Builder {
	protocol := opts.Protocol
	if protocol == "" {
		protocol = "http"
	}

	return &Builder{
		host:         strings.TrimSuffix(opts.Host, "/"),
		protocol:     protocol,
		path:         opts.Path,
		implicitPath: opts.ImplicitPath,
	}
}

// Build 返回 subPath 对应的 URL. isExternal 为 true 时加上 implicit path；
// excludeHost 为 true 时只返回路径部分.
func (b *Builder) Build(subPath string, isExternal, excludeHost bool) string {
	var p string

	if isExternal {
		p = join(p, b.implicitPath)
	}

	p = join(p, b.path)
	p = join(p, subPath)

	if excludeHost {
		return p
	}

	return b.protocol + "://" + b.host + p
}

// Host 返回对外主机名.
func (b *Builder) Host() string { return b.host }

// join 拼接路径片段，片段之间恰好保留一个 '/'.
func join(base, elem string) string {
	if elem == "" {
		return base
	}

	if !strings.HasPrefix(elem, "/") {
		elem = "/" + elem
	}

	return strings.TrimSuffix(base, "/") + elem
}
