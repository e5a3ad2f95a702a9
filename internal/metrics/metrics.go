package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aura"

// SyncMetrics метрики оркестратора синхронизации
type SyncMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
	rejected   *prometheus.CounterVec
	products   *prometheus.CounterVec
}

// NewSyncMetrics регистрирует метрики в reg. nil означает реестр по умолчанию.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &SyncMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_operations_total",
			Help:      "Количество завершенных операций синхронизации",
		}, []string{"action", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_operation_duration_seconds",
			Help:      "Длительность операций синхронизации",
			Buckets:   []float64{0.1, 0.5, 1, 2, 3, 5, 10, 30, 60},
		}, []string{"action"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_operations_in_flight",
			Help:      "Количество выполняющихся операций",
		}, []string{"action"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_admissions_rejected_total",
			Help:      "Отказы в запуске операции по предусловию",
		}, []string{"action", "reason"}),
		products: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_products_total",
			Help:      "Количество скачанных и опубликованных товаров",
		}, []string{"action"}),
	}
}

// Started отмечает начало операции и возвращает функцию завершения
func (m *SyncMetrics) Started(action string) func(outcome string, products int) {
	if m == nil {
		return func(string, int) {}
	}
	start := time.Now()
	m.inFlight.WithLabelValues(action).Inc()

	return func(outcome string, products int) {
		m.inFlight.WithLabelValues(action).Dec()
		m.duration.WithLabelValues(action).Observe(time.Since(start).Seconds())
		m.operations.WithLabelValues(action, outcome).Inc()
		if products > 0 {
			m.products.WithLabelValues(action).Add(float64(products))
		}
	}
}

// Rejected отмечает отказ в запуске операции
func (m *SyncMetrics) Rejected(action, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(action, reason).Inc()
}

// HTTPMetrics метрики HTTP сервера
type HTTPMetrics struct {
	Durations *prometheus.HistogramVec
	Requests  *prometheus.CounterVec
	Active    prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &HTTPMetrics{
		Durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_durations_seconds",
			Help:    "Длительность HTTP запросов",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		}, []string{"path", "method", "status"}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Количество активных HTTP запросов",
		}),
	}
}

// WorkerMetrics метрики обработки команд из брокера
type WorkerMetrics struct {
	Processed *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Active    prometheus.Gauge
}

func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_processed_total",
			Help: "Общее количество обработанных сообщений",
		}, []string{"topic", "status"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_message_processing_duration_seconds",
			Help:    "Длительность обработки сообщений",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		Active: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Количество активных горутин-обработчиков",
		}),
	}
}
