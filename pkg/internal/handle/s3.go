package handle

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/uploadgate/pkg/configs"
	appctx "github.com/yeisme/uploadgate/pkg/context"
	s3c "github.com/yeisme/uploadgate/pkg/internal/storage/s3"
	"github.com/yeisme/uploadgate/pkg/middleware"
	"github.com/yeisme/uploadgate/pkg/route"
)

// ObjectsPath 对象读写接口的路径.
const ObjectsPath = "/s3/objects"

// PresignPostResponse presigned POST 响应，浏览器以 multipart/form-data 提交 fields 与文件.
type PresignPostResponse struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	Bucket    string            `json:"bucket"`
	Key       string            `json:"key"`
	ExpiresIn int64             `json:"expires_in"`
}

// ObjectURLResponse 预签名下载链接响应.
type ObjectURLResponse struct {
	URL       string `json:"url"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

// PresignPost 为解析出的目标位置生成 presigned POST.
func PresignPost(c *gin.Context) {
	uc, ok := uploadContext(c)
	if !ok {
		return
	}

	opts := uc.Options

	post, err := uc.PresignClient.PresignPost(c.Request.Context(), s3c.PostOptions{
		Expires:     opts.PresignExpiry,
		ContentType: opts.Params.ContentType,
		MaxSize:     opts.MaxUploadSize,
		Metadata:    objectMetadata(opts.Params.Metadata),
	})
	if err != nil {
		storageError(c, "presign post", err)
		return
	}

	c.JSON(http.StatusOK, PresignPostResponse{
		Method:    http.MethodPost,
		URL:       post.URL,
		Fields:    post.Fields,
		Bucket:    uc.PresignClient.Bucket(),
		Key:       uc.PresignClient.Key(),
		ExpiresIn: post.ExpiresIn,
	})
}

// PutObject 把请求体流式写入解析出的目标位置.
func PutObject(c *gin.Context) {
	uc, ok := uploadContext(c)
	if !ok {
		return
	}

	limit := uc.Options.MaxUploadSize
	size := c.Request.ContentLength

	if limit > 0 && size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, middleware.ErrorResponse{Error: "object exceeds max upload size", Kind: "validation"})
		return
	}

	body := &limitedBody{r: c.Request.Body}
	if limit > 0 {
		body.r = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}

	contentType := c.ContentType()
	if contentType == "" || contentType == "application/octet-stream" {
		if t := uc.Options.Params.ContentType; t != "" {
			contentType = t
		}
	}

	info, err := uc.StorageClient.PutObject(c.Request.Context(), body, size, contentType)
	if err != nil {
		if body.tooLarge {
			c.JSON(http.StatusRequestEntityTooLarge, middleware.ErrorResponse{Error: "object exceeds max upload size", Kind: "validation"})
			return
		}

		storageError(c, "put object", err)

		return
	}

	if info.ETag != "" {
		c.Header("ETag", strconv.Quote(info.ETag))
	}

	c.Header("Location", objectLocation(uc))
	c.JSON(http.StatusCreated, info)
}

// GetObjectURL 返回预签名下载链接，expires 为可选的有效期秒数.
func GetObjectURL(c *gin.Context) {
	uc, ok := uploadContext(c)
	if !ok {
		return
	}

	var ttl time.Duration

	if raw := c.Query("expires"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs <= 0 {
			c.JSON(http.StatusBadRequest, middleware.ErrorResponse{Error: "expires must be a positive number of seconds", Kind: "validation", Field: "expires"})
			return
		}

		ttl = time.Duration(secs) * time.Second
	}

	if ttl <= 0 {
		ttl = uc.Options.PresignExpiry
	}

	if ttl <= 0 {
		ttl = configs.DefaultS3PresignExpiry
	}

	ttl = min(ttl, configs.MaxS3PresignExpiry)

	u, err := uc.StorageClient.PresignedGetURL(c.Request.Context(), ttl)
	if err != nil {
		storageError(c, "presign get", err)
		return
	}

	c.JSON(http.StatusOK, ObjectURLResponse{
		URL:       u,
		Bucket:    uc.StorageClient.Bucket(),
		Key:       uc.StorageClient.Key(),
		ExpiresIn: int64(ttl / time.Second),
	})
}

// HeadObject 返回对象元信息，只有响应头.
func HeadObject(c *gin.Context) {
	uc, ok := uploadContext(c)
	if !ok {
		return
	}

	info, err := uc.StorageClient.StatObject(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.Status(middleware.StatusFor(err))

		return
	}

	if info.ETag != "" {
		c.Header("ETag", strconv.Quote(info.ETag))
	}

	if info.ContentType != "" {
		c.Header("Content-Type", info.ContentType)
	}

	if !info.LastModified.IsZero() {
		c.Header("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}

	c.Header("X-Object-Size", strconv.FormatInt(info.Size, 10))
	c.Status(http.StatusOK)
}

// DeleteObject 删除解析出的对象.
func DeleteObject(c *gin.Context) {
	uc, ok := uploadContext(c)
	if !ok {
		return
	}

	if err := uc.StorageClient.RemoveObject(c.Request.Context()); err != nil {
		storageError(c, "remove object", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// limitedBody 记录读取过程中是否超过 MaxBytesReader 的上限，存储驱动返回的错误不再携带原始类型.
type limitedBody struct {
	r        io.Reader
	tooLarge bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		b.tooLarge = true
	}

	return n, err
}

// objectMetadata 写入对象的用户元数据：去掉路由键与空值.
func objectMetadata(meta route.Metadata) map[string]string {
	routing := map[string]struct{}{}
	for _, k := range []string{route.MetaBucketName, route.MetaDynamicKey, route.MetaExistingPath, route.MetaResourceID} {
		routing[k] = struct{}{}
	}

	out := map[string]string{}

	for k, v := range meta {
		if _, skip := routing[k]; skip || meta.Get(k) == "" {
			continue
		}

		out[k] = v
	}

	return out
}

// objectLocation 指向同一对象的对外 URL：metadata 中固定 bucket 与 key，再次请求会解析到同一位置.
func objectLocation(uc *appctx.UploadContext) string {
	meta, err := sonic.MarshalString(map[string]string{
		route.MetaBucketName: uc.StorageClient.Bucket(),
		route.MetaDynamicKey: uc.StorageClient.Key(),
	})
	if err != nil {
		return uc.URLBuilder.Build(ObjectsPath, true, false)
	}

	return uc.URLBuilder.Build(ObjectsPath, true, false) + "?" + url.Values{"metadata": {meta}}.Encode()
}
