package s3

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/uploadgate/pkg/configs"
)

// breaker 进程级熔断器，所有请求级客户端共享. nil 表示不熔断.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(cfg configs.CircuitBreakerConfig) *breaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "object-storage",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.Requests
			if total < cfg.MinRequests {
				return false
			}
			// 失败比例
			failureRate := float64(counts.TotalFailures) / float64(total)

			return failureRate >= cfg.FailureRate
		},
		// 对象不存在、拒绝访问与调用方取消都说明后端是健康的
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrAccessDenied) ||
				errors.Is(err, context.Canceled)
		},
	}

	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State 返回熔断器当前状态，未启用时为 closed.
func (b *breaker) State() gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}

	return b.cb.State()
}

func execute[T any](b *breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	out, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T

		return zero, ErrBreakerOpen
	}

	v, _ := out.(T)

	return v, err
}
