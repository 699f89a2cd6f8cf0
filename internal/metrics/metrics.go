// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証処理の結果ラベル
const (
	OutcomeSuccess          = "success"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeConflict         = "conflict"
	OutcomeBadCredentials   = "bad_credentials"
	OutcomeNotFound         = "not_found"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomeInternal         = "internal"
)

// トークン検証の結果ラベル
const (
	TokenValid       = "valid"
	TokenInvalid     = "invalid"
	TokenExpired     = "expired"
	TokenAccountGone = "account_gone"
	TokenStoreError  = "store_error"
)

// Recorder はメトリクス収集のインターフェース。
// 認証サービスとHTTPミドルウェアから利用する。
type Recorder interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordTokenVerification(result string)
	RecordPasswordHash(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations  *prometheus.CounterVec
	logins         *prometheus.CounterVec
	tokenChecks    *prometheus.CounterVec
	hashLatency    prometheus.Histogram
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passgate_registrations_total",
			Help: "結果別のアカウント登録数",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passgate_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"outcome"}),
		tokenChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passgate_token_verifications_total",
			Help: "結果別のベアラートークン検証数",
		}, []string{"result"}),
		hashLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_password_hash_seconds",
			Help:    "パスワードハッシュ計算の所要時間（秒）",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.tokenChecks,
		c.hashLatency,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordRegistration はアカウント登録の結果を記録する。
func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(result string) {
	c.tokenChecks.WithLabelValues(result).Inc()
}

// RecordPasswordHash はパスワードハッシュ計算の所要時間を記録する。
func (c *Collector) RecordPasswordHash(duration time.Duration) {
	c.hashLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないRecorder。メトリクスを使わない構成とテストで使用する。
type Nop struct{}

func (Nop) RecordRegistration(string)          {}
func (Nop) RecordLogin(string)                 {}
func (Nop) RecordTokenVerification(string)     {}
func (Nop) RecordPasswordHash(time.Duration)   {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
