package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommerceMetrics содержит метрики сборки заказов и подтверждения платежей.
type CommerceMetrics struct {
	// Счётчики сборки заказов.
	ordersCreated     prometheus.Counter
	assemblyFailed    prometheus.Counter
	checkoutConflicts prometheus.Counter

	// Гистограмма времени сборки заказа.
	assemblyDuration prometheus.Histogram

	// Резервирование остатков по результату (reserved/insufficient/released/adjusted).
	reservations *prometheus.CounterVec

	// Подтверждения платежей по исходу (confirmed/failed/cancelled/auto_confirmed/retry_scheduled).
	confirmations *prometheus.CounterVec

	// События аудита и outbox.
	historyEvents prometheus.Counter
	outboxEvents  prometheus.Counter

	// Gauge для сборок в полёте.
	activeAssemblies prometheus.Gauge
}

// NewCommerceMetrics создаёт метрики на default registerer.
func NewCommerceMetrics() *CommerceMetrics {
	return newCommerceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCommerceMetricsWithRegisterer(registerer prometheus.Registerer) *CommerceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CommerceMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_orders_created_total",
			Help: "Total number of orders assembled from checkout sessions",
		}),
		assemblyFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_order_assembly_failed_total",
			Help: "Total number of order assemblies rolled back",
		}),
		checkoutConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_checkout_lock_conflicts_total",
			Help: "Total number of checkout completions rejected by the status CAS guard",
		}),
		assemblyDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "commerce_order_assembly_duration_seconds",
			Help:    "Duration of checkout-to-order assembly transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reservations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_inventory_operations_total",
			Help: "Total number of inventory ledger operations grouped by result",
		}, []string{"result"}),
		confirmations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "commerce_payment_confirmations_total",
			Help: "Total number of payment confirmation outcomes grouped by result",
		}, []string{"result"}),
		historyEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_order_history_events_total",
			Help: "Total number of order history events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "commerce_outbox_events_total",
			Help: "Total number of events enqueued into transactional outbox",
		}),
		activeAssemblies: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "commerce_active_assemblies",
			Help: "Number of order assemblies currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик собранных заказов.
func (m *CommerceMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordAssemblyFailed увеличивает счётчик откатившихся сборок.
func (m *CommerceMetrics) RecordAssemblyFailed() {
	m.assemblyFailed.Inc()
}

// RecordCheckoutConflict увеличивает счётчик CAS-конфликтов checkout.
func (m *CommerceMetrics) RecordCheckoutConflict() {
	m.checkoutConflicts.Inc()
}

// RecordAssemblyDuration записывает время сборки заказа.
func (m *CommerceMetrics) RecordAssemblyDuration(duration time.Duration) {
	m.assemblyDuration.Observe(duration.Seconds())
}

// RecordInventoryOp увеличивает счётчик операций склада по результату.
func (m *CommerceMetrics) RecordInventoryOp(result string) {
	m.reservations.WithLabelValues(result).Inc()
}

// RecordConfirmation увеличивает счётчик исходов подтверждения.
func (m *CommerceMetrics) RecordConfirmation(result string) {
	m.confirmations.WithLabelValues(result).Inc()
}

// RecordHistoryEvent увеличивает счётчик записей аудит-журнала.
func (m *CommerceMetrics) RecordHistoryEvent() {
	m.historyEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CommerceMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordAssemblyStarted увеличивает количество сборок в полёте.
func (m *CommerceMetrics) RecordAssemblyStarted() {
	m.activeAssemblies.Inc()
}

// RecordAssemblyFinished уменьшает количество сборок в полёте.
func (m *CommerceMetrics) RecordAssemblyFinished() {
	m.activeAssemblies.Dec()
}
