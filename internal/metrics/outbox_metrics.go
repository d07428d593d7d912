package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты попытки публикации outbox-сообщения.
const (
	OutboxResultSent      = "sent"
	OutboxResultRetry     = "retry_error"
	OutboxResultFailed    = "failed"
	OutboxResultDLQFailed = "dlq_failed"
)

// OutboxMetrics описывает доставку событий из transactional outbox.
type OutboxMetrics struct {
	attempts         *prometheus.CounterVec
	pending          prometheus.Gauge
	oldestPendingAge prometheus.Gauge
}

// NewOutboxMetricsWithRegisterer регистрирует метрики outbox worker.
func NewOutboxMetricsWithRegisterer(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OutboxMetrics{
		attempts: register(registerer, "orders_outbox_publish_attempts_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"})),
		pending: register(registerer, "orders_outbox_pending_records", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orders_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		})),
		oldestPendingAge: register(registerer, "orders_outbox_oldest_pending_age_seconds", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orders_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		})),
	}
}

// RecordAttempt учитывает результат попытки публикации.
func (m *OutboxMetrics) RecordAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

// SetBacklog выставляет размер backlog и возраст самого старого сообщения.
func (m *OutboxMetrics) SetBacklog(pending int, oldest time.Time, now time.Time) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	if pending == 0 || oldest.IsZero() {
		m.oldestPendingAge.Set(0)
		return
	}
	m.oldestPendingAge.Set(max(now.Sub(oldest).Seconds(), 0))
}
