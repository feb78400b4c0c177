// Package observability 提供交易與帳戶鎖的 Prometheus 指標
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
)

const namespace = "account"

// 鎖取得結果
const (
	LockAcquired    = "acquired"
	LockUnavailable = "unavailable"
	LockError       = "error"
)

// Metrics 所有方法都允許 nil receiver，方便測試或工具不掛指標
type Metrics struct {
	transactions *prometheus.CounterVec
	lockAcquire  *prometheus.HistogramVec
	lockReleases *prometheus.CounterVec
}

// NewMetrics 在指定的 Registerer 上註冊指標
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transaction attempts by type, result and error code.",
		}, []string{"type", "result", "code"}),
		lockAcquire: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_acquire_seconds",
			Help:      "Time spent acquiring the per-account lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"outcome"}),
		lockReleases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_releases_total",
			Help:      "Per-account lock releases by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveTransaction 記錄一次交易嘗試，成功時 code 為空
func (m *Metrics) ObserveTransaction(typ domain.TransactionType, result domain.TransactionResult, code domain.ErrorCode) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.transactions.WithLabelValues(string(typ), string(result), string(code)).Inc()
}

// ObserveLockAcquire 記錄取得鎖的耗時
func (m *Metrics) ObserveLockAcquire(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.lockAcquire.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveLockRelease 記錄釋放鎖的結果 (released / error)
func (m *Metrics) ObserveLockRelease(outcome string) {
	if m == nil {
		return
	}
	m.lockReleases.WithLabelValues(outcome).Inc()
}
