// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordTokenExchange(success bool)
	RecordPageFetched()
	RecordFetchFailure()
	RecordFetchLatency(duration time.Duration)
	RecordLLMCall(operation string)
	RecordExport(target string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	tokenExchange *prometheus.CounterVec
	pagesFetched  prometheus.Counter
	fetchFail     prometheus.Counter
	fetchLatency  prometheus.Histogram
	llmCalls      *prometheus.CounterVec
	exports       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokenExchange: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenport_token_exchange_total",
			Help: "OAuthトークン交換の合計数（結果別）",
		}, []string{"result"}),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zenport_pages_fetched_total",
			Help: "取得した記事ページの合計数",
		}),
		fetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zenport_fetch_fail_total",
			Help: "記事取得失敗の合計数",
		}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zenport_fetch_latency_seconds",
			Help:    "記事ページ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenport_llm_calls_total",
			Help: "LLM呼び出しの合計数（操作別）",
		}, []string{"operation"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zenport_exports_total",
			Help: "エクスポート実行の合計数（出力先別）",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.tokenExchange,
		c.pagesFetched,
		c.fetchFail,
		c.fetchLatency,
		c.llmCalls,
		c.exports,
	)

	return c
}

// RecordTokenExchange はOAuthトークン交換の結果を記録する。
func (c *Collector) RecordTokenExchange(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.tokenExchange.WithLabelValues(result).Inc()
}

// RecordPageFetched は記事ページの取得成功を記録する。
func (c *Collector) RecordPageFetched() {
	c.pagesFetched.Inc()
}

// RecordFetchFailure は記事取得の失敗を記録する。
func (c *Collector) RecordFetchFailure() {
	c.fetchFail.Inc()
}

// RecordFetchLatency は記事ページ取得のレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordLLMCall はLLM呼び出しを操作名付きで記録する。
func (c *Collector) RecordLLMCall(operation string) {
	c.llmCalls.WithLabelValues(operation).Inc()
}

// RecordExport はエクスポート実行を出力先付きで記録する。
func (c *Collector) RecordExport(target string) {
	c.exports.WithLabelValues(target).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
