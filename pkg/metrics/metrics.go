// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、路由决策与对象存储调用指标.
//
// Example:
//
//	import "github.com/yeisme/uploadgate/pkg/metrics"
//
//	metrics.InitMetrics(config.Metrics)
//
//	// 记录指标
//	metrics.RouteDecisions.WithLabelValues(metrics.OutcomeOK).Inc()
//	metrics.RequestDuration.WithLabelValues("PUT", "/s3/objects").Observe(0.1)
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/uploadgate/pkg/configs"
)

const namespace = "uploadgate"

// 路由决策与存储调用的结果标签.
const (
	OutcomeOK            = "ok"
	OutcomeValidation    = "validation"
	OutcomeConfiguration = "configuration"
	OutcomeCanceled      = "canceled"
	OutcomeError         = "error"
)

// 全局指标变量. 未调用 InitMetrics 时仍可写入，只是不会被导出.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 正在处理的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight requests",
		},
	)

	// RouteDecisions 存储上下文中间件的决策结果.
	RouteDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Storage routing decisions by outcome",
		},
		[]string{"outcome"},
	)

	// StorageOperations 对象存储调用次数.
	StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operations_total",
			Help:      "Object storage calls by driver, operation and outcome",
		},
		[]string{"driver", "operation", "outcome"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) {
	if !config.Enabled {
		return
	}

	registerOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(RequestCounter, RequestDuration, ActiveConnections, RouteDecisions, StorageOperations)
	})
}

// RegisterRoutes 在 engine 上挂载指标端点（以及可选的 pprof）.
func RegisterRoutes(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	engine.GET(config.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
