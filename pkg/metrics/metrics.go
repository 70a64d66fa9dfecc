// Package metrics 提供 Prometheus 指标集合与 /metrics 暴露
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 成交笔数（按方向 buy/sell）
	TradesTotal *prometheus.CounterVec
	// 被拒绝的交易（按原因）
	TradesRejectedTotal *prometheus.CounterVec
	// 行情查询计数（按结果 ok/not_found/error）
	OracleLookupsTotal *prometheus.CounterVec
	// 行情查询耗时
	OracleLookupDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New 创建指标实例并注册到独立 registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Executed trades",
		}, []string{"side"}),
		TradesRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "trades_rejected_total",
			Help:      "Rejected trades by reason",
		}, []string{"reason"}),
		OracleLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "oracle_lookups_total",
			Help:      "Price oracle lookups by outcome",
		}, []string{"outcome"}),
		OracleLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "paperbroker",
			Subsystem: serviceName,
			Name:      "oracle_lookup_duration_seconds",
			Help:      "Price oracle lookup duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TradesTotal,
		m.TradesRejectedTotal,
		m.OracleLookupsTotal,
		m.OracleLookupDuration,
	)

	return m
}

// Handler 返回 /metrics 的 gin 处理函数
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
