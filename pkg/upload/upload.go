// Package upload 从请求中提取上传参数：文件名、类型与元数据.
//
// 支持三种来源，按顺序合并，后者覆盖前者：
//   - tus 协议的 Upload-Metadata 请求头（逗号分隔的 "key base64(value)"）
//   - query 参数 filename、type 与 metadata（JSON 对象）
//   - POST 请求的 JSON body {filename, type, metadata}
package upload

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/yeisme/uploadgate/pkg/errs"
	"github.com/yeisme/uploadgate/pkg/route"
)

// HeaderTusMetadata tus 协议的元数据请求头.
const HeaderTusMetadata = "Upload-Metadata"

// Params 上传参数.
type Params struct {
	Filename    string         `json:"filename"`
	ContentType string         `json:"type,omitempty"`
	Metadata    route.Metadata `json:"metadata"`
}

// body JSON body 的结构，metadata 的值可以是任意 JSON 标量.
type body struct {
	Filename    string         `json:"filename"`
	ContentType string         `json:"type"`
	Metadata    map[string]any `json:"metadata"`
}

// FromRequest 提取上传参数. maxBody 限制 JSON body 的大小，<=0 时不读取 body.
// 读取过的 body 会被重新放回 r.Body，下游仍可读取.
func FromRequest(r *http.Request, maxBody int64) (Params, error) {
	p := Params{Metadata: route.Metadata{}}

	if h := r.Header.Get(HeaderTusMetadata); h != "" {
		meta, err := ParseTusMetadata(h)
		if err != nil {
			return Params{}, err
		}

		p.merge("", "", meta)
	}

	q := r.URL.Query()
	if raw := q.Get("metadata"); raw != "" {
		var m map[string]any
		if err := sonic.UnmarshalString(raw, &m); err != nil {
			return Params{}, errs.NewValidation("metadata", "metadata query parameter is not a JSON object")
		}

		meta, err := stringify(m)
		if err != nil {
			return Params{}, err
		}

		p.merge("", "", meta)
	}

	p.merge(q.Get("filename"), q.Get("type"), nil)

	if maxBody > 0 && r.Method == http.MethodPost && isJSON(r) && r.Body != nil {
		b, err := readBody(r, maxBody)
		if err != nil {
			return Params{}, err
		}

		if len(bytes.TrimSpace(b)) > 0 {
			var in body
			if err := sonic.Unmarshal(b, &in); err != nil {
				return Params{}, errs.NewValidation("body", "request body is not valid JSON")
			}

			meta, err := stringify(in.Metadata)
			if err != nil {
				return Params{}, err
			}

			p.merge(in.Filename, in.ContentType, meta)
		}
	}

	return p, nil
}

// merge 非空值覆盖已有值. 元数据中的 filename/name 与 filetype/type 也作为文件名与类型的来源.
func (p *Params) merge(filename, contentType string, meta map[string]string) {
	for k, v := range meta {
		p.Metadata[k] = v
	}

	for _, k := range []string{"name", "filename"} {
		if v := meta[k]; v != "" {
			p.Filename = v
		}
	}

	for _, k := range []string{"type", "filetype"} {
		if v := meta[k]; v != "" {
			p.ContentType = v
		}
	}

	if filename != "" {
		p.Filename = filename
	}

	if contentType != "" {
		p.ContentType = contentType
	}
}

// ParseTusMetadata 解析 Upload-Metadata 请求头. 值可以省略（表示空字符串），键不能重复.
func ParseTusMetadata(header string) (map[string]string, error) {
	out := map[string]string{}

	for _, pair := range strings.Split(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, encoded, _ := strings.Cut(pair, " ")
		if key == "" || strings.ContainsAny(key, " \t") {
			return nil, errs.NewValidation(HeaderTusMetadata, "malformed metadata pair \""+pair+"\"")
		}

		if _, dup := out[key]; dup {
			return nil, errs.NewValidation(HeaderTusMetadata, "duplicate metadata key \""+key+"\"")
		}

		val, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, errs.NewValidation(HeaderTusMetadata, "metadata value for \""+key+"\" is not base64")
		}

		out[key] = string(val)
	}

	return out, nil
}

// stringify 把 JSON 值转为字符串：字符串原样保留，null 忽略，其余按 JSON 编码.
func stringify(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))

	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		default:
			s, err := sonic.MarshalString(val)
			if err != nil {
				return nil, errs.NewValidation("metadata", "metadata value for \""+k+"\" cannot be encoded")
			}

			out[k] = s
		}
	}

	return out, nil
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")

	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ct)), "application/json")
}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, errs.NewValidation("body", "failed to read request body: "+err.Error())
	}

	if int64(len(b)) > maxBody {
		return nil, errs.NewValidation("body", "request body is too large")
	}

	r.Body = io.NopCloser(bytes.NewReader(b))

	return b, nil
}
