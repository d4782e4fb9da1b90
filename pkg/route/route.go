// Package route 根据上传元数据、文件名与请求上下文计算对象的目标位置 (bucket, key).
//
// bucket 与 key 各由一个具名策略计算，策略在启动时按配置选择. 所有策略都是纯函数：
// 相同输入总是得到相同输出，调用方在元数据中显式给出的值总是优先于计算出的默认值.
//
// Example:
//
//	r, err := route.New(route.BucketOverrideElseDefault, route.KeyOverrideElseFilename, "uploads")
//	if err != nil {
//		// 未知策略名称
//	}
//
//	dec, err := r.Resolve(route.Input{
//		Filename: "report.csv",
//		Metadata: route.Metadata{"dynamic_key": "folder/report.csv"},
//	})
package route

import (
	"errors"
	"strings"

	"github.com/yeisme/uploadgate/pkg/errs"
)

// 可识别的元数据键.
const (
	MetaBucketName   = "bucket_name"   // 覆盖目标 bucket
	MetaDynamicKey   = "dynamic_key"   // 覆盖目标 key
	MetaExistingPath = "existing_path" // 已存在资源的路径，resource-namespaced 策略使用
	MetaResourceID   = "resource_id"   // 资源 ID，resource-namespaced 策略使用
)

// Metadata 上传客户端提供的元数据，路由层只读不写.
type Metadata map[string]string

// Get 返回 key 对应的值；不存在或只有空白字符时返回空字符串.
func (m Metadata) Get(key string) string {
	v, ok := m[key]
	if !ok || strings.TrimSpace(v) == "" {
		return ""
	}

	return v
}

// Override 返回覆盖项 key 的值. 键不存在或值为 "" 时 ok 为 false，调用方使用默认值；
// 值只有空白字符时视为一次无效的覆盖，返回 ValidationError，不回退到默认值.
func (m Metadata) Override(key string) (v string, ok bool, err error) {
	v, ok = m[key]
	if !ok || v == "" {
		return "", false, nil
	}

	if strings.TrimSpace(v) == "" {
		return "", true, errs.NewValidation(key, "override is blank")
	}

	return v, true, nil
}

// RoutingKeys 返回 m 中会影响路由结果的键，只有空白字符的覆盖项也计入.
func (m Metadata) RoutingKeys() []string {
	var keys []string

	for _, k := range []string{MetaBucketName, MetaDynamicKey, MetaExistingPath, MetaResourceID} {
		if m[k] != "" {
			keys = append(keys, k)
		}
	}

	return keys
}

// RequestInfo 请求上下文中与路由有关的信息.
type RequestInfo struct {
	ResourceID string // 来自路由参数或请求头的资源 ID
	User       string
}

// Input 解析器的输入.
type Input struct {
	Filename string
	Metadata Metadata
	Request  RequestInfo
}

// Decision 目标位置，两个字段均非空.
type Decision struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Resolver 持有选定的策略与默认 bucket，创建后只读，可并发使用.
type Resolver struct {
	defaultBucket  string
	bucketStrategy string
	keyStrategy    string
	bucket         BucketFunc
	key            KeyFunc
}

// New 按策略名称创建解析器，名称未注册时返回 ConfigurationError.
func New(bucketStrategy, keyStrategy, defaultBucket string) (*Resolver, error) {
	bf, ok := bucketStrategies[bucketStrategy]
	if !ok {
		return nil, errs.NewConfiguration("unknown bucket strategy \""+bucketStrategy+"\"", "routing.bucket_strategy")
	}

	kf, ok := keyStrategies[keyStrategy]
	if !ok {
		return nil, errs.NewConfiguration("unknown key strategy \""+keyStrategy+"\"", "routing.key_strategy")
	}

	return &Resolver{
		defaultBucket:  defaultBucket,
		bucketStrategy: bucketStrategy,
		keyStrategy:    keyStrategy,
		bucket:         bf,
		key:            kf,
	}, nil
}

// BucketStrategy 返回使用中的 bucket 策略名称.
func (r *Resolver) BucketStrategy() string { return r.bucketStrategy }

// KeyStrategy 返回使用中的 key 策略名称.
func (r *Resolver) KeyStrategy() string { return r.keyStrategy }

// DefaultBucket 返回配置的默认 bucket，可能为空.
func (r *Resolver) DefaultBucket() string { return r.defaultBucket }

// ResolveBucket 计算目标 bucket.
func (r *Resolver) ResolveBucket(in Input) (string, error) {
	bucket, err := r.bucket(in, r.defaultBucket)
	if err != nil {
		return "", err
	}

	if bucket == "" {
		return "", errs.NewConfiguration("bucket strategy \""+r.bucketStrategy+"\" produced an empty bucket", MetaBucketName)
	}

	if err := CheckBucketName(bucket); err != nil {
		return "", errs.NewValidation(MetaBucketName, err.Error())
	}

	return bucket, nil
}

// ResolveKey 计算目标 key.
func (r *Resolver) ResolveKey(in Input) (string, error) {
	key, err := r.key(in)
	if err != nil {
		return "", err
	}

	if key == "" {
		return "", errs.NewValidation("key", "key strategy \""+r.keyStrategy+"\" produced an empty key")
	}

	if err := CheckObjectKey(key); err != nil {
		return "", errs.NewValidation("key", err.Error())
	}

	return key, nil
}

// Resolve 同时计算 bucket 与 key. 两者都失败时返回 errors.Join 的组合错误，调用方可以一次看到全部缺失的输入.
func (r *Resolver) Resolve(in Input) (Decision, error) {
	bucket, bErr := r.ResolveBucket(in)
	key, kErr := r.ResolveKey(in)

	if err := errors.Join(bErr, kErr); err != nil {
		return Decision{}, err
	}

	return Decision{Bucket: bucket, Key: key}, nil
}
