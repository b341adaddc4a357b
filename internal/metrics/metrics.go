// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API呼び出し結果のラベル値。
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeFailure  = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Disney APIクライアントやビュー状態の管理から利用する。
type MetricsCollector interface {
	RecordAPICall(endpoint, outcome string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordSupersededResult(view string)
	SetViewSessions(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	httpStatus   *prometheus.CounterVec
	superseded   *prometheus.CounterVec
	viewSessions prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "disneydex_api_requests_total",
			Help: "Disney API呼び出しの合計数（エンドポイント・結果別）",
		}, []string{"endpoint", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "disneydex_api_latency_seconds",
			Help:    "Disney API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "disneydex_api_http_status_total",
			Help: "Disney APIのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "disneydex_superseded_results_total",
			Help: "新しいリクエストに追い越されて破棄された取得結果の数",
		}, []string{"view"}),
		viewSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "disneydex_view_sessions",
			Help: "保持中の一覧ビューセッション数",
		}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.httpStatus,
		c.superseded,
		c.viewSessions,
	)

	return c
}

// RecordAPICall はAPI呼び出しの結果とレイテンシを記録する。
func (c *Collector) RecordAPICall(endpoint, outcome string, duration time.Duration) {
	c.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	c.apiLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSupersededResult は破棄された取得結果を記録する。
func (c *Collector) RecordSupersededResult(view string) {
	c.superseded.WithLabelValues(view).Inc()
}

// SetViewSessions は保持中のビューセッション数を設定する。
func (c *Collector) SetViewSessions(count int) {
	c.viewSessions.Set(float64(count))
}

// Nop は何も記録しないMetricsCollector。
// CLIやテストなどPrometheusを公開しない場面で使う。
type Nop struct{}

func (Nop) RecordAPICall(string, string, time.Duration) {}
func (Nop) RecordHTTPStatus(int)                       {}
func (Nop) RecordSupersededResult(string)              {}
func (Nop) SetViewSessions(int)                        {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
