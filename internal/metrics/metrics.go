package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry       *prometheus.Registry
	registryOnce   sync.Once
	metricsEnabled = false

	// Pipeline metrics
	AnalysesTotal      *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	RecordsProcessed   prometheus.Counter
	AnomaliesDetected  *prometheus.CounterVec
	ComparisonsTotal   *prometheus.CounterVec
	ValidationFailures prometheus.Counter
	AnalysisSeverity   *prometheus.CounterVec

	// Collaborator metrics
	StoreOperations  *prometheus.CounterVec
	EventsPublished  *prometheus.CounterVec
	SummaryRequests  *prometheus.CounterVec
	AMQPConnectionUp prometheus.Gauge
)

// Init initializes all metrics and registers them with Prometheus
func Init(logger logrus.FieldLogger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_analyses_total",
				Help: "Total number of analysis requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		)

		AnalysisDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kpi_analysis_duration_seconds",
				Help:    "Time taken to run the analysis pipeline",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // From 1ms to ~8s
			},
			[]string{"mode"},
		)

		RecordsProcessed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kpi_records_processed_total",
				Help: "Total number of cleaned samples analyzed",
			},
		)

		AnomaliesDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_anomalies_detected_total",
				Help: "Total number of anomalies flagged by detector",
			},
			[]string{"detector"},
		)

		ComparisonsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_comparisons_total",
				Help: "Total number of comparisons by verdict",
			},
			[]string{"mode", "verdict"},
		)

		ValidationFailures = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kpi_validation_failures_total",
				Help: "Total number of inputs rejected by the normalizer",
			},
		)

		AnalysisSeverity = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_analysis_severity_total",
				Help: "Total number of analyses by anomaly severity",
			},
			[]string{"severity"},
		)

		StoreOperations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_store_operations_total",
				Help: "Total number of persistence operations",
			},
			[]string{"operation", "status"},
		)

		EventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_events_published_total",
				Help: "Total number of analysis events published",
			},
			[]string{"routing_key", "status"},
		)

		SummaryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpi_summary_requests_total",
				Help: "Total number of AI summary requests",
			},
			[]string{"status"},
		)

		AMQPConnectionUp = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kpi_amqp_connection_up",
				Help: "Whether the event publisher is connected (1) or not (0)",
			},
		)

		registry.MustRegister(
			AnalysesTotal,
			AnalysisDuration,
			RecordsProcessed,
			AnomaliesDetected,
			ComparisonsTotal,
			ValidationFailures,
			AnalysisSeverity,
			StoreOperations,
			EventsPublished,
			SummaryRequests,
			AMQPConnectionUp,
		)

		metricsEnabled = true
		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsMetricsEnabled returns whether metrics are enabled
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// Handler returns the exposition handler, or 404 when metrics were never initialized
func Handler() http.Handler {
	if !metricsEnabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          registry,
		},
	)
}

// ObserveAnalysis records the duration of a pipeline run with a timer function
func ObserveAnalysis(mode string) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		AnalysisDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
}

// RecordAnalysis records the outcome of an analysis request
func RecordAnalysis(mode, outcome string) {
	if metricsEnabled {
		AnalysesTotal.WithLabelValues(mode, outcome).Inc()
	}
}

// RecordAnomalies records per-detector anomaly counts of one analysis
func RecordAnomalies(records int, severity string, counts map[string]int) {
	if !metricsEnabled {
		return
	}
	RecordsProcessed.Add(float64(records))
	AnalysisSeverity.WithLabelValues(severity).Inc()
	for detector, n := range counts {
		AnomaliesDetected.WithLabelValues(detector).Add(float64(n))
	}
}

// RecordComparison records the verdict of a comparison
func RecordComparison(mode, verdict string) {
	if metricsEnabled {
		ComparisonsTotal.WithLabelValues(mode, verdict).Inc()
	}
}

// RecordValidationFailure records an input rejected by the normalizer
func RecordValidationFailure() {
	if metricsEnabled {
		ValidationFailures.Inc()
	}
}

// RecordStoreOperation records a persistence call
func RecordStoreOperation(operation, status string) {
	if metricsEnabled {
		StoreOperations.WithLabelValues(operation, status).Inc()
	}
}

// RecordEventPublish records an event publish attempt
func RecordEventPublish(routingKey, status string) {
	if metricsEnabled {
		EventsPublished.WithLabelValues(routingKey, status).Inc()
	}
}

// RecordSummaryRequest records an AI summary call
func RecordSummaryRequest(status string) {
	if metricsEnabled {
		SummaryRequests.WithLabelValues(status).Inc()
	}
}

// SetAMQPConnectionStatus sets the publisher connection status
func SetAMQPConnectionStatus(connected bool) {
	if metricsEnabled {
		if connected {
			AMQPConnectionUp.Set(1)
		} else {
			AMQPConnectionUp.Set(0)
		}
	}
}
