package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций над заказами.
// Методы безопасно вызывать на nil-получателе.
type OrderMetrics struct {
	ordersCreated  prometheus.Counter
	failures       *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	unknownProduct prometheus.Counter
	outboxDropped  prometheus.Counter

	operationDuration *prometheus.HistogramVec
	catalogLatency    prometheus.Histogram
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация переиспользует уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: register(registerer, "orders_created_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		})),
		failures: register(registerer, "orders_operation_failures_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_operation_failures_total",
			Help: "Total number of failed order operations by operation and error origin",
		}, []string{"operation", "origin"})),
		statusChanges: register(registerer, "orders_status_changes_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_status_changes_total",
			Help: "Total number of order status changes by target status",
		}, []string{"status"})),
		unknownProduct: register(registerer, "orders_unknown_products_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_unknown_products_total",
			Help: "Total number of order items referencing products missing from the catalog",
		})),
		outboxDropped: register(registerer, "orders_outbox_enqueue_failures_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_outbox_enqueue_failures_total",
			Help: "Total number of order events that could not be written to the outbox",
		})),
		operationDuration: register(registerer, "orders_operation_duration_seconds", prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"})),
		catalogLatency: register(registerer, "orders_catalog_request_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orders_catalog_request_duration_seconds",
			Help:    "Duration of product catalog validation requests in seconds",
			Buckets: prometheus.DefBuckets,
		})),
	}
}

// register регистрирует коллектор или возвращает ранее зарегистрированный того же типа.
func register[C prometheus.Collector](registerer prometheus.Registerer, name string, collector C) C {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(C)
		if !ok {
			panic(fmt.Sprintf("collector %q already registered with unexpected type", name))
		}
		return existing
	}
	panic(fmt.Sprintf("register collector %q: %v", name, err))
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordFailure учитывает неуспешную операцию с указанием источника ошибки.
func (m *OrderMetrics) RecordFailure(operation, origin string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, origin).Inc()
}

// RecordStatusChange учитывает смену статуса заказа.
func (m *OrderMetrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordUnknownProducts учитывает позиции с товарами, которых нет в каталоге.
func (m *OrderMetrics) RecordUnknownProducts(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.unknownProduct.Add(float64(count))
}

// RecordOutboxEnqueueFailed учитывает событие, не попавшее в outbox.
func (m *OrderMetrics) RecordOutboxEnqueueFailed() {
	if m == nil {
		return
	}
	m.outboxDropped.Inc()
}

// ObserveOperation записывает длительность операции.
func (m *OrderMetrics) ObserveOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCatalogLatency записывает длительность запроса к каталогу товаров.
func (m *OrderMetrics) ObserveCatalogLatency(duration time.Duration) {
	if m == nil {
		return
	}
	m.catalogLatency.Observe(duration.Seconds())
}
