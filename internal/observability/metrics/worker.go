package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/invoice-intake/internal/core/domain"
)

// WorkerMetrics covers the extraction pipeline.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal      *prometheus.CounterVec
	processDuration   *prometheus.HistogramVec
	processInFlight   prometheus.Gauge
	queueLag          *prometheus.HistogramVec
	validationOutcome *prometheus.CounterVec
	fieldConfidence   *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "invoice_process_total",
			Help:      "Total processed invoices by outcome.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "invoice_process_duration_seconds",
			Help:      "Invoice processing duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "invoice_process_in_flight",
			Help:      "Number of in-flight invoice processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between invoice upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	validationOutcome := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "validation_outcomes_total",
			Help:      "Total validation reports by folded status.",
		},
		[]string{"service", "status"},
	)
	fieldConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "worker",
			Name:      "field_confidence",
			Help:      "Distribution of selected field confidence by kind.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, validationOutcome, fieldConfidence)

	return &WorkerMetrics{
		registry:          registry,
		processTotal:      processTotal,
		processDuration:   processDuration,
		processInFlight:   processInFlight,
		queueLag:          queueLag,
		validationOutcome: validationOutcome,
		fieldConfidence:   fieldConfidence,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartInvoice() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishInvoice(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveExtraction(service string, extraction domain.Extraction, report domain.ValidationReport) {
	m.validationOutcome.WithLabelValues(service, string(report.Status)).Inc()
	for _, field := range extraction.Fields {
		m.fieldConfidence.WithLabelValues(service, string(field.Kind)).Observe(field.Confidence)
	}
}
