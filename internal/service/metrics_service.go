package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	sweepRuns       prometheus.Counter
	sweepFailures   prometheus.Counter
	backupsUploaded prometheus.Counter
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backup_sweep_runs_total",
		Help: "Total backup sweep executions",
	})

	sweepFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backup_sweep_failures_total",
		Help: "Total per-user backup failures during sweeps",
	})

	backupsUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "backups_uploaded_total",
		Help: "Total backup files uploaded",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sweepRuns, sweepFailures, backupsUploaded, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		sweepRuns:       sweepRuns,
		sweepFailures:   sweepFailures,
		backupsUploaded: backupsUploaded,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveSweepRun records one sweep execution.
func (s *MetricsService) ObserveSweepRun() {
	s.sweepRuns.Inc()
}

// ObserveSweepFailure records one failed per-user backup inside a sweep.
func (s *MetricsService) ObserveSweepFailure() {
	s.sweepFailures.Inc()
}

// ObserveBackupUploaded records one uploaded backup file.
func (s *MetricsService) ObserveBackupUploaded() {
	s.backupsUploaded.Inc()
}
