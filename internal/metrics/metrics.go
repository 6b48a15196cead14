// Package metrics 定义服务的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "next_dataset"

var (
	// ImportsTotal 导入次数，status: success, existing, failed
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "imports_total",
			Help:      "Total number of dataset imports by status",
		},
		[]string{"status"},
	)

	// ImportDuration 单次导入耗时
	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "import_duration_seconds",
			Help:      "Duration of dataset imports in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// RecordsImported 导入的记录数，按模态统计
	RecordsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of imported records by modality",
		},
		[]string{"modality"},
	)

	// PreviewPages 预览页数
	PreviewPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "pages_total",
			Help:      "Total number of preview pages served",
		},
	)

	// PreviewSkippedLines 预览时跳过的无法解析的行
	PreviewSkippedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preview",
			Name:      "skipped_lines_total",
			Help:      "Total number of unparsable lines skipped while previewing",
		},
	)

	// CacheRequests 结果缓存访问，result: hit, miss
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of result cache lookups by key and result",
		},
		[]string{"key", "result"},
	)

	// HTTPRequestsTotal HTTP 请求数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// RecordImport 记录一次导入
func RecordImport(status string, durationSeconds float64) {
	ImportsTotal.WithLabelValues(status).Inc()
	ImportDuration.Observe(durationSeconds)
}

// RecordModalityCounts 按模态累加导入记录数
func RecordModalityCounts(counts map[string]int) {
	for modality, n := range counts {
		if n > 0 {
			RecordsImported.WithLabelValues(modality).Add(float64(n))
		}
	}
}

// RecordCacheLookup 记录一次缓存访问
func RecordCacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(key, result).Inc()
}

// RecordHTTPRequest 记录一次 HTTP 请求
func RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
