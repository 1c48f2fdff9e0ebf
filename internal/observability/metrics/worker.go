package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	analyzeTotal    *prometheus.CounterVec
	analyzeDuration *prometheus.HistogramVec
	analyzeInFlight prometheus.Gauge
	issuesDetected  *prometheus.HistogramVec
	scores          *prometheus.HistogramVec
	bulkJobsTotal   *prometheus.CounterVec
	bulkItemsTotal  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	analyzeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "analyze_total",
			Help:      "Total analysis runs by status.",
		},
		[]string{"service", "status"},
	)
	analyzeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "analyze_duration_seconds",
			Help:      "Analysis run duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	analyzeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "analyze_in_flight",
			Help:      "Number of in-flight analysis runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	issuesDetected := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "issues_detected",
			Help:      "Distribution of issues found per completed analysis.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
		[]string{"service"},
	)
	scores := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "compliance_score",
			Help:      "Distribution of compliance scores per completed analysis.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 75, 90, 100},
		},
		[]string{"service"},
	)
	bulkJobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "bulk_jobs_total",
			Help:      "Total completed bulk jobs by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	bulkItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "a11y",
			Subsystem: "worker",
			Name:      "bulk_items_total",
			Help:      "Total bulk job items by kind and outcome.",
		},
		[]string{"service", "kind", "outcome"},
	)

	registry.MustRegister(analyzeTotal, analyzeDuration, analyzeInFlight, issuesDetected, scores, bulkJobsTotal, bulkItemsTotal)

	return &WorkerMetrics{
		registry:        registry,
		analyzeTotal:    analyzeTotal,
		analyzeDuration: analyzeDuration,
		analyzeInFlight: analyzeInFlight,
		issuesDetected:  issuesDetected,
		scores:          scores,
		bulkJobsTotal:   bulkJobsTotal,
		bulkItemsTotal:  bulkItemsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartAnalysis() {
	m.analyzeInFlight.Inc()
}

func (m *WorkerMetrics) FinishAnalysis(service string, duration time.Duration, err error) {
	m.analyzeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.analyzeTotal.WithLabelValues(service, status).Inc()
	m.analyzeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveAnalysisResult(service string, issueCount, score int) {
	m.issuesDetected.WithLabelValues(service).Observe(float64(issueCount))
	m.scores.WithLabelValues(service).Observe(float64(score))
}

func (m *WorkerMetrics) FinishBulkJob(service, kind string, successful, failed int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.bulkJobsTotal.WithLabelValues(service, kind, status).Inc()
	if successful > 0 {
		m.bulkItemsTotal.WithLabelValues(service, kind, "success").Add(float64(successful))
	}
	if failed > 0 {
		m.bulkItemsTotal.WithLabelValues(service, kind, "failure").Add(float64(failed))
	}
}
