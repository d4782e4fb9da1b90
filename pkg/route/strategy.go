package route

import (
	"sort"
	"strings"

	"github.com/yeisme/uploadgate/pkg/errs"
)

// 内置策略名称.
const (
	// BucketOverrideElseDefault metadata.bucket_name 优先，否则使用默认 bucket.
	BucketOverrideElseDefault = "override-else-default"

	// KeyOverrideElseFilename metadata.dynamic_key 优先，否则使用文件名（平铺）.
	KeyOverrideElseFilename = "override-else-filename"
	// KeyResourceNamespaced metadata.dynamic_key 优先，其次 existing_path，否则 "{resourceId}/{filename}".
	KeyResourceNamespaced = "resource-namespaced"
)

// BucketFunc bucket 策略. defaultBucket 为配置中的默认值，可能为空.
type BucketFunc func(in Input, defaultBucket string) (string, error)

// KeyFunc key 策略.
type KeyFunc func(in Input) (string, error)

// 策略表只在包初始化时写入.
var (
	bucketStrategies = map[string]BucketFunc{
		BucketOverrideElseDefault: overrideElseDefault,
	}
	keyStrategies = map[string]KeyFunc{
		KeyOverrideElseFilename: overrideElseFilename,
		KeyResourceNamespaced:   resourceNamespaced,
	}
)

// RegisterBucketStrategy 注册 bucket 策略，必须在 init 中调用，不可与 New 并发.
func RegisterBucketStrategy(name string, fn BucketFunc) {
	bucketStrategies[name] = fn
}

// RegisterKeyStrategy 注册 key 策略，必须在 init 中调用，不可与 New 并发.
func RegisterKeyStrategy(name string, fn KeyFunc) {
	keyStrategies[name] = fn
}

// HasBucketStrategy 名称是否已注册.
func HasBucketStrategy(name string) bool {
	_, ok := bucketStrategies[name]
	return ok
}

// HasKeyStrategy 名称是否已注册.
func HasKeyStrategy(name string) bool {
	_, ok := keyStrategies[name]
	return ok
}

// BucketStrategies 返回已注册的 bucket 策略名称（已排序）.
func BucketStrategies() []string {
	return sortedKeys(bucketStrategies)
}

// KeyStrategies 返回已注册的 key 策略名称（已排序）.
func KeyStrategies() []string {
	return sortedKeys(keyStrategies)
}

func sortedKeys[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func overrideElseDefault(in Input, defaultBucket string) (string, error) {
	if b, ok, err := in.Metadata.Override(MetaBucketName); ok {
		return b, err
	}

	if defaultBucket != "" {
		return defaultBucket, nil
	}

	return "", errs.NewConfiguration("no bucket specified and no default configured", MetaBucketName, "s3.bucket_name")
}

func overrideElseFilename(in Input) (string, error) {
	if k, ok, err := in.Metadata.Override(MetaDynamicKey); ok {
		return k, err
	}

	if strings.TrimSpace(in.Filename) != "" {
		return in.Filename, nil
	}

	return "", errs.NewValidation("filename", "no key and empty filename")
}

func resourceNamespaced(in Input) (string, error) {
	if k, ok, err := in.Metadata.Override(MetaDynamicKey); ok {
		return k, err
	}

	if p := in.Metadata.Get(MetaExistingPath); p != "" {
		return p, nil
	}

	if strings.TrimSpace(in.Filename) == "" {
		return "", errs.NewValidation("filename", "no key, no existing path and empty filename")
	}

	id := in.Metadata.Get(MetaResourceID)
	if id == "" {
		id = strings.TrimSpace(in.Request.ResourceID)
	}

	if id == "" {
		return "", errs.NewValidation(MetaResourceID, "no key, no existing path and no resource id")
	}

	// 不做 path.Clean，文件名中的 ".." 交给 CheckObjectKey 拒绝，避免逃逸出资源前缀
	return strings.TrimSuffix(id, "/") + "/" + in.Filename, nil
}
