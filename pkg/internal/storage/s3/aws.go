package s3

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yeisme/uploadgate/pkg/configs"
	"github.com/yeisme/uploadgate/pkg/errs"
)

type awsBackend struct {
	client    *awss3.Client
	presigner *awss3.PresignClient
}

func newAWSBackend(opts Options, tr http.RoundTripper) (*awsBackend, error) {
	p := opts.Provider

	region := p.Region
	if region == "" {
		region = configs.DefaultS3Region
	}

	o := awss3.Options{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			opts.Credentials.AccessKey,
			opts.Credentials.SecretKey,
			opts.Credentials.SessionToken,
		),
		UsePathStyle: p.PathStyle,
		HTTPClient:   &http.Client{Transport: tr},
		// 流式上传时 body 不可 seek，只在服务端要求时计算校验和
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}

	if p.Endpoint != "" {
		endpoint, err := awsEndpoint(p)
		if err != nil {
			return nil, err
		}

		o.BaseEndpoint = aws.String(endpoint)
	}

	client := awss3.New(o)

	return &awsBackend{client: client, presigner: awss3.NewPresignClient(client)}, nil
}

// awsEndpoint aws-sdk 需要带 scheme 的端点，未写 scheme 时按 UseSSL 补全.
func awsEndpoint(p configs.ProviderOptions) (string, error) {
	cfg := configs.S3Config{ProviderOptions: p}

	u, err := url.Parse(cfg.GetEndpointURL())
	if err != nil || u.Host == "" {
		return "", errs.NewConfiguration("invalid storage endpoint \""+p.Endpoint+"\"", "s3.endpoint")
	}

	return u.String(), nil
}

func (b *awsBackend) driver() string { return DriverAWS }

func (b *awsBackend) put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (ObjectInfo, error) {
	input := &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	}

	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	var optFns []func(*awss3.Options)
	// 不可 seek 的 body 无法预先计算 payload hash，改为 UNSIGNED-PAYLOAD
	if _, ok := r.(io.ReadSeeker); !ok {
		optFns = append(optFns, awss3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	}

	out, err := b.client.PutObject(ctx, input, optFns...)
	if err != nil {
		return ObjectInfo{}, wrapError(err, ErrUploadFailed)
	}

	return ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        size,
		ETag:        aws.ToString(out.ETag),
		ContentType: contentType,
	}, nil
}

func (b *awsBackend) stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectInfo{}, wrapError(err, ErrStatFailed)
	}

	return ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (b *awsBackend) remove(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapError(err, ErrDeleteFailed)
	}

	return nil
}

func (b *awsBackend) presignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", wrapError(err, ErrPresignFailed)
	}

	return req.URL, nil
}

func (b *awsBackend) presignPost(ctx context.Context, bucket, key string, opts PostOptions) (PresignedPost, error) {
	// 额外字段既要写入 policy 条件，也要作为表单字段返回给浏览器
	extra := make(map[string]string, len(opts.Metadata)+1)

	var conditions []interface{}

	if opts.ContentType != "" {
		extra["Content-Type"] = opts.ContentType
	}

	for _, k := range sortedKeys(opts.Metadata) {
		extra["x-amz-meta-"+k] = opts.Metadata[k]
	}

	for _, k := range sortedKeys(extra) {
		conditions = append(conditions, map[string]string{k: extra[k]})
	}

	if opts.MaxSize > 0 {
		conditions = append(conditions, []interface{}{"content-length-range", 0, opts.MaxSize})
	}

	req, err := b.presigner.PresignPostObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(po *awss3.PresignPostOptions) {
		po.Expires = opts.Expires
		po.Conditions = conditions
	})
	if err != nil {
		return PresignedPost{}, wrapError(err, ErrPresignFailed)
	}

	fields := make(map[string]string, len(req.Values)+len(extra))
	for k, v := range req.Values {
		fields[k] = v
	}

	for k, v := range extra {
		fields[k] = v
	}

	return PresignedPost{URL: req.URL, Fields: fields}, nil
}
