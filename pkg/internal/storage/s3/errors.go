package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	minio "github.com/minio/minio-go/v7"
)

// 存储调用的哨兵错误，调用方使用 errors.Is 判断.
var (
	ErrNotFound      = errors.New("storage: object not found")
	ErrAccessDenied  = errors.New("storage: access denied")
	ErrUploadFailed  = errors.New("storage: upload failed")
	ErrStatFailed    = errors.New("storage: stat failed")
	ErrDeleteFailed  = errors.New("storage: delete failed")
	ErrPresignFailed = errors.New("storage: presign failed")
	ErrBreakerOpen   = errors.New("storage: backend unavailable, circuit open")
)

// wrapError 把 SDK 错误归一化为哨兵错误. 原始错误只保留文本，调用方不应依赖 SDK 的错误类型.
// context 的取消与超时原样保留，便于上层区分客户端断开.
func wrapError(err, fallback error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if sentinel := classify(err); sentinel != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

func classify(err error) error {
	var mErr minio.ErrorResponse
	if errors.As(err, &mErr) && (mErr.Code != "" || mErr.StatusCode != 0) {
		switch {
		case mErr.Code == "NoSuchKey" || mErr.Code == "NoSuchBucket" || mErr.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case mErr.Code == "AccessDenied" || mErr.StatusCode == http.StatusForbidden:
			return ErrAccessDenied
		}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return ErrNotFound
		case "AccessDenied", "Forbidden":
			return ErrAccessDenied
		}
	}

	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return ErrNotFound
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ErrNotFound
	}

	return nil
}
