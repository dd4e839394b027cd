// Package metrics содержит метрики Prometheus движка доступа.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics содержит счётчики и гистограммы операций движка.
type Metrics struct {
	// Исходы операций по имени операции и результату (ok / ошибка).
	OperationTotal *prometheus.CounterVec

	// Длительность операций движка.
	OperationLatency prometheus.Histogram

	// Подписки, отмеченные фоновым обходом как истёкшие.
	ExpiredTagged prometheus.Counter
}

// New создаёт и регистрирует метрики движка.
func New() *Metrics {
	return &Metrics{
		OperationTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eduaccess_operations_total",
			Help: "Total engine operations by name and result",
		}, []string{"operation", "result"}),

		OperationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eduaccess_operation_duration_seconds",
			Help:    "Duration of engine operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ExpiredTagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eduaccess_expired_tagged_total",
			Help: "Subscriptions tagged as expired by the sweep",
		}),
	}
}

// ObserveOperation фиксирует исход и длительность операции движка.
func (m *Metrics) ObserveOperation(operation, result string, d time.Duration) {
	if m != nil {
		m.OperationTotal.WithLabelValues(operation, result).Inc()
		m.OperationLatency.Observe(d.Seconds())
	}
}

// IncExpiredTagged фиксирует подписку, отмеченную как истёкшую.
func (m *Metrics) IncExpiredTagged() {
	if m != nil {
		m.ExpiredTagged.Inc()
	}
}
