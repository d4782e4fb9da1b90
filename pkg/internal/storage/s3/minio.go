package s3

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/errs"
)

type minioBackend struct {
	cli *minio.Client
}

func newMinioBackend(opts Options, tr http.RoundTripper) (*minioBackend, error) {
	p := opts.Provider

	endpoint, secure, err := minioEndpoint(p)
	if err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupDNS
	if p.PathStyle {
		lookup = minio.BucketLookupPath
	}

	region := p.Region
	if region == "" {
		region = configs.DefaultS3Region
	}

	// Region 显式指定时 minio-go 不会在构建或签名时访问网络
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.Credentials.AccessKey, opts.Credentials.SecretKey, opts.Credentials.SessionToken),
		Secure:       secure,
		Region:       region,
		Transport:    tr,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, errs.NewConfiguration("create minio client: "+err.Error(), "s3.endpoint")
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	return &minioBackend{cli: cli}, nil
}

// minioEndpoint 允许用户传完整 schema endpoint（http:// 或 https://），https 时开启 TLS.
// 未配置端点时访问 AWS.
func minioEndpoint(p configs.ProviderOptions) (string, bool, error) {
	if p.Endpoint == "" {
		return configs.AWSS3Endpoint, true, nil
	}

	endpoint, secure := p.Endpoint, p.UseSSL

	if u, err := url.Parse(p.Endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	if endpoint == "" {
		return "", false, errs.NewConfiguration("invalid storage endpoint \""+p.Endpoint+"\"", "s3.endpoint")
	}

	return endpoint, secure, nil
}

func (b *minioBackend) driver() string { return DriverMinio }

func (b *minioBackend) put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error) {
	info, err := b.cli.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return ObjectInfo{}, wrapError(err, ErrUploadFailed)
	}

	return ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  contentType,
		LastModified: info.LastModified,
	}, nil
}

func (b *minioBackend) stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := b.cli.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, wrapError(err, ErrStatFailed)
	}

	return ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (b *minioBackend) remove(ctx context.Context, bucket, key string) error {
	if err := b.cli.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return wrapError(err, ErrDeleteFailed)
	}

	return nil
}

func (b *minioBackend) presignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := b.cli.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", wrapError(err, ErrPresignFailed)
	}

	return u.String(), nil
}

func (b *minioBackend) presignPost(ctx context.Context, bucket, key string, opts PostOptions) (PresignedPost, error) {
	policy := minio.NewPostPolicy()

	if err := policy.SetBucket(bucket); err != nil {
		return PresignedPost{}, wrapError(err, ErrPresignFailed)
	}

	if err := policy.SetKey(key); err != nil {
		return PresignedPost{}, wrapError(err, ErrPresignFailed)
	}

	if err := policy.SetExpires(time.Now().UTC().Add(opts.Expires)); err != nil {
		return PresignedPost{}, wrapError(err, ErrPresignFailed)
	}

	if opts.ContentType != "" {
		if err := policy.SetContentType(opts.ContentType); err != nil {
			return PresignedPost{}, wrapError(err, ErrPresignFailed)
		}
	}

	if opts.MaxSize > 0 {
		if err := policy.SetContentLengthRange(0, opts.MaxSize); err != nil {
			return PresignedPost{}, wrapError(err, ErrPresignFailed)
		}
	}

	for _, k := range sortedKeys(opts.Metadata) {
		if err := policy.SetUserMetadata(k, opts.Metadata[k]); err != nil {
			return PresignedPost{}, wrapError(err, ErrPresignFailed)
		}
	}

	u, fields, err := b.cli.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return PresignedPost{}, wrapError(err, ErrPresignFailed)
	}

	return PresignedPost{URL: u.String(), Fields: fields}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
