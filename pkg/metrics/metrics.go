package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 模型调用延迟（毫秒）
	ModelCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_call_latency_ms",
			Help:    "Language model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"provider", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 对话动作执行计数
	ChatActionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_actions_total",
			Help: "Total number of chat intents processed",
		},
		[]string{"kind", "status"}, // status: applied, not_found, forbidden, error, invalid, malformed
	)

	// 上下文片段读取失败计数
	ContextFragmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_fragment_failures_total",
			Help: "Total number of context fragments that degraded to empty",
		},
		[]string{"fragment"},
	)

	// 对话轮次计数
	ChatTurnCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns handled",
		},
		[]string{"outcome"}, // outcome: ok, degraded, rejected, rate_limited, error
	)
)

// RecordModelCallLatency 记录模型调用延迟
func RecordModelCallLatency(provider, status string, duration time.Duration) {
	ModelCallLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementChatAction 增加动作计数
func IncrementChatAction(kind, status string) {
	ChatActionCount.WithLabelValues(kind, status).Inc()
}

// IncrementContextFragmentFailure 增加上下文片段失败计数
func IncrementContextFragmentFailure(fragment string) {
	ContextFragmentFailures.WithLabelValues(fragment).Inc()
}

// IncrementChatTurn 增加对话轮次计数
func IncrementChatTurn(outcome string) {
	ChatTurnCount.WithLabelValues(outcome).Inc()
}
