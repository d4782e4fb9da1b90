package route

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7/pkg/s3utils"
)

var (
	errAbsoluteKey  = errors.New("object key must not start with '/'")
	errTraversalKey = errors.New("object key must not contain '..' segments")
)

// CheckBucketName 按 S3 严格命名规则校验 bucket 名称（小写、3-63 位）.
func CheckBucketName(bucket string) error {
	return s3utils.CheckValidBucketNameStrict(bucket)
}

// CheckObjectKey 校验 key：S3 规则之外，拒绝绝对路径与 ".." 段，防止调用方借 dynamic_key 逃逸前缀.
func CheckObjectKey(key string) error {
	if err := s3utils.CheckValidObjectName(key); err != nil {
		return err
	}

	if strings.HasPrefix(key, "/") {
		return errAbsoluteKey
	}

	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return errTraversalKey
		}
	}

	return nil
}
