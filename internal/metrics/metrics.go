// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordRequest(method, routeName string, statusCode int)
	RecordRequestDuration(method, routeName string, duration time.Duration)
	RecordAuthFailure(reason string)
	RecordCommentSubmitted()
	RecordCommentModerated(approved bool)
	RecordPostPublished()
	RecordUserRegistered()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	authFailures     *prometheus.CounterVec
	commentSubmitted prometheus.Counter
	commentModerated *prometheus.CounterVec
	postPublished    prometheus.Counter
	userRegistered   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiji_http_requests_total",
			Help: "ルート別・ステータスコード別のリクエスト数",
		}, []string{"method", "route", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kiji_http_request_duration_seconds",
			Help:    "ルート別のリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiji_auth_failures_total",
			Help: "認証失敗の理由別合計数",
		}, []string{"reason"}),
		commentSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiji_comments_submitted_total",
			Help: "投稿されたコメントの合計数",
		}),
		commentModerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiji_comments_moderated_total",
			Help: "モデレーション結果別のコメント数",
		}, []string{"result"}),
		postPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiji_posts_published_total",
			Help: "公開された記事の合計数",
		}),
		userRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiji_users_registered_total",
			Help: "登録完了したユーザーの合計数",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.authFailures,
		c.commentSubmitted,
		c.commentModerated,
		c.postPublished,
		c.userRegistered,
	)

	return c
}

// RecordRequest はリクエストの完了を記録する。
func (c *Collector) RecordRequest(method, routeName string, statusCode int) {
	c.requests.WithLabelValues(method, routeName, strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(method, routeName string, duration time.Duration) {
	c.requestDuration.WithLabelValues(method, routeName).Observe(duration.Seconds())
}

// RecordAuthFailure は認証失敗を理由付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordCommentSubmitted はコメント投稿を記録する。
func (c *Collector) RecordCommentSubmitted() {
	c.commentSubmitted.Inc()
}

// RecordCommentModerated はコメントのモデレーション結果を記録する。
func (c *Collector) RecordCommentModerated(approved bool) {
	result := "rejected"
	if approved {
		result = "approved"
	}
	c.commentModerated.WithLabelValues(result).Inc()
}

// RecordPostPublished は記事の公開を記録する。
func (c *Collector) RecordPostPublished() {
	c.postPublished.Inc()
}

// RecordUserRegistered はユーザー登録の完了を記録する。
func (c *Collector) RecordUserRegistered() {
	c.userRegistered.Inc()
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
