// Package errs 定义路由层的错误分类.
//
// ConfigurationError 表示静态配置缺失或非法（没有默认 bucket、凭证为空、启动校验失败），不重试，
// 在启动阶段应直接终止进程. ValidationError 表示单个请求的输入无法得出合法的目标位置，只影响该请求.
//
// Example:
//
//	if errors.Is(err, errs.ErrValidation) {
//		// 返回 400
//	}
//
//	var cfgErr *errs.ConfigurationError
//	if errors.As(err, &cfgErr) {
//		fmt.Println(cfgErr.Fields)
//	}
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// 哨兵错误，用于 errors.Is 判断分类.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Kind 错误分类名称，同时作为响应体中的 kind 字段.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindInternal      Kind = "internal"
)

// ConfigurationError 配置错误，Fields 列出所有缺失或非法的字段.
type ConfigurationError struct {
	Fields []string
	Reason string
}

// NewConfiguration 创建配置错误.
func NewConfiguration(reason string, fields ...string) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Fields: fields}
}

func (e *ConfigurationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}

	return fmt.Sprintf("%s: %s [%s]", ErrConfiguration, e.Reason, strings.Join(e.Fields, ", "))
}

// Is 使 errors.Is(err, ErrConfiguration) 成立.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ValidationError 请求级输入校验错误.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidation 创建请求校验错误.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}

	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Is 使 errors.Is(err, ErrValidation) 成立.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// KindOf 返回错误所属的分类. 同时包含两类错误时（errors.Join）配置错误优先，
// 因为它意味着运维侧需要介入.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// Fields 收集错误链中所有 ValidationError 与 ConfigurationError 涉及的字段名，便于响应体说明缺失的输入.
func Fields(err error) []string {
	var fields []string

	var walk func(error)

	walk = func(e error) {
		if e == nil {
			return
		}

		switch v := e.(type) {
		case *ValidationError:
			if v.Field != "" {
				fields = append(fields, v.Field)
			}

			return
		case *ConfigurationError:
			fields = append(fields, v.Fields...)

			return
		case interface{ Unwrap() []error }:
			for _, inner := range v.Unwrap() {
				walk(inner)
			}

			return
		}

		walk(errors.Unwrap(e))
	}

	walk(err)

	return fields
}
