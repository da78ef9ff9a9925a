// Package metrics 定义推荐引擎的 Prometheus 指标。
//
// New(nil) 使用 prometheus.DefaultRegisterer；测试中传入独立的 prometheus.NewRegistry()。
// 所有方法对 nil *Metrics 安全（空操作），引擎可以不接监控。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "artrec"

// Metrics 聚合全部指标。
type Metrics struct {
	Requests        *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StoreCalls      *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BatchUsers      *prometheus.CounterVec
	SnapshotReloads *prometheus.CounterVec
}

// New 在 reg 上注册全部指标。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_requests_total",
			Help:      "Recommendation requests by final algorithm.",
		}, []string{"algorithm"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_fallbacks_total",
			Help:      "Popularity fallbacks by reason.",
		}, []string{"reason"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Recommendation latency by strategy.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		StoreCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_store_calls_total",
			Help:      "Feature store calls by operation and result.",
		}, []string{"op", "result"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feature_store_duration_seconds",
			Help:      "Feature store call latency by operation.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
		BatchUsers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_users_total",
			Help:      "Users processed by batch recomputation, by result.",
		}, []string{"result"}),
		SnapshotReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reloads by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRequest(strategy, algorithm string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(algorithm).Inc()
	m.RequestDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) IncFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveStoreCall(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreCalls.WithLabelValues(op, result(err)).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncBatchUser(err error) {
	if m == nil {
		return
	}
	m.BatchUsers.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) IncSnapshotReload(err error) {
	if m == nil {
		return
	}
	m.SnapshotReloads.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
