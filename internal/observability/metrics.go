// Package observability holds the prometheus metrics of the shell.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager manages Prometheus metrics
type MetricsManager struct {
	registry *prometheus.Registry

	uptime       prometheus.Gauge
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
	coreRunning  prometheus.Gauge
	imports      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetricsManager creates a new metrics manager with its own registry.
func NewMetricsManager() *MetricsManager {
	mm := &MetricsManager{registry: prometheus.NewRegistry()}
	mm.initMetrics()
	mm.registerMetrics()
	return mm
}

func (mm *MetricsManager) initMetrics() {
	mm.uptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verge_uptime_seconds",
		Help: "Time since the application started",
	})

	mm.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verge_bootstrap_step_duration_seconds",
			Help:    "Duration of bootstrap steps",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"step"},
	)

	mm.stepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verge_bootstrap_step_failures_total",
			Help: "Number of failed bootstrap steps",
		},
		[]string{"step", "critical"},
	)

	mm.coreRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verge_core_running",
		Help: "1 while the proxy core process is running",
	})

	mm.imports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verge_profile_imports_total",
			Help: "Profile imports from clash:// links by result",
		},
		[]string{"result"},
	)

	mm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verge_http_requests_total",
			Help: "Total number of embed server requests",
		},
		[]string{"method", "path", "status"},
	)

	mm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verge_http_request_duration_seconds",
			Help:    "Embed server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
}

func (mm *MetricsManager) registerMetrics() {
	mm.registry.MustRegister(
		mm.uptime,
		mm.stepDuration,
		mm.stepFailures,
		mm.coreRunning,
		mm.imports,
		mm.httpRequests,
		mm.httpDuration,
	)

	mm.registry.MustRegister(collectors.NewGoCollector())
	mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for the /metrics endpoint
func (mm *MetricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// SetUptime sets the uptime metric
func (mm *MetricsManager) SetUptime(startTime time.Time) {
	mm.uptime.Set(time.Since(startTime).Seconds())
}

// RecordStep records one executed bootstrap step.
func (mm *MetricsManager) RecordStep(step string, critical bool, duration time.Duration, err error) {
	mm.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
	if err != nil {
		label := "false"
		if critical {
			label = "true"
		}
		mm.stepFailures.WithLabelValues(step, label).Inc()
	}
}

// SetCoreRunning sets the core gauge
func (mm *MetricsManager) SetCoreRunning(running bool) {
	if running {
		mm.coreRunning.Set(1)
		return
	}
	mm.coreRunning.Set(0)
}

// RecordImport counts a scheme import
func (mm *MetricsManager) RecordImport(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	mm.imports.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records HTTP request metrics
func (mm *MetricsManager) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	mm.httpRequests.WithLabelValues(method, path, status).Inc()
	mm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// HTTPMiddleware returns middleware that records HTTP metrics
func (mm *MetricsManager) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			mm.RecordHTTPRequest(r.Method, r.URL.Path, http.StatusText(ww.statusCode), time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
