// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は貸出ドメインとHTTP層のPrometheusメトリクスを収集する。
// store.MetricsRecorderを実装する。
type Collector struct {
	loans        prometheus.Counter
	returns      prometheus.Counter
	loanRejected *prometheus.CounterVec
	httpStatus   *prometheus.CounterVec
	httpLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_loans_total",
			Help: "貸出成功の合計数",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_returns_total",
			Help: "返却の合計数",
		}),
		loanRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendman_loan_rejected_total",
			Help: "拒否された貸出の理由別合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lendman_http_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loans,
		c.returns,
		c.loanRejected,
		c.httpStatus,
		c.httpLatency,
	)

	return c
}

// RecordLoan は貸出成功を記録する。
func (c *Collector) RecordLoan() {
	c.loans.Inc()
}

// RecordReturn は返却を記録する。
func (c *Collector) RecordReturn() {
	c.returns.Inc()
}

// RecordLoanRejected は拒否された貸出を理由付きで記録する。
// reasonは not_available / already_active のいずれか。
func (c *Collector) RecordLoanRejected(reason string) {
	c.loanRejected.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsとしてマウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
