// Package metrics exposes Prometheus collectors for igfetch.
//
// Collectors live on a private registry owned by a Metrics value, so tests
// and multiple servers in one process do not collide. All methods are safe
// on a nil *Metrics and then do nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline results
const (
	ResultSuccess   = "success"
	ResultExhausted = "exhausted"
	ResultInvalid   = "invalid"
)

// Metrics holds the service collectors
type Metrics struct {
	registry *prometheus.Registry

	strategyAttempts *prometheus.CounterVec
	strategyDuration *prometheus.HistogramVec
	pipelineRuns     *prometheus.CounterVec
	bytesTotal       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	activeWorkers    prometheus.Gauge
	sweptFiles       prometheus.Counter
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		strategyAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfetch_strategy_attempts_total",
				Help: "Strategy attempts, labeled by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
		strategyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igfetch_strategy_duration_seconds",
				Help:    "Histogram of strategy attempt durations.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"strategy"},
		),
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfetch_pipeline_runs_total",
				Help: "Pipeline runs, labeled by result.",
			},
			[]string{"result"},
		),
		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfetch_downloaded_bytes_total",
				Help: "Bytes written to the output directory, labeled by strategy.",
			},
			[]string{"strategy"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igfetch_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igfetch_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "igfetch_active_workers",
			Help: "Number of workers currently running a pipeline.",
		}),
		sweptFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "igfetch_swept_files_total",
			Help: "Expired files removed from the output directory.",
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler for exposing the metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStrategy records one strategy attempt
func (m *Metrics) ObserveStrategy(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.strategyAttempts.WithLabelValues(strategy, outcome).Inc()
	m.strategyDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObservePipeline records the result of one pipeline run
func (m *Metrics) ObservePipeline(result string) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(result).Inc()
}

// ObserveBytes adds n downloaded bytes for strategy
func (m *Metrics) ObserveBytes(strategy string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(strategy).Add(float64(n))
}

// ObserveHTTPRequest increments the HTTP request metrics
func (m *Metrics) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge
func (m *Metrics) IncActiveWorkers() {
	if m != nil {
		m.activeWorkers.Inc()
	}
}

// DecActiveWorkers decrements the active workers gauge
func (m *Metrics) DecActiveWorkers() {
	if m != nil {
		m.activeWorkers.Dec()
	}
}

// ObserveSweep adds removed files to the sweep counter
func (m *Metrics) ObserveSweep(removed int) {
	if m != nil && removed > 0 {
		m.sweptFiles.Add(float64(removed))
	}
}

// Middleware records method, status and latency for every request, labeling
// latency by the matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, route, status, time.Since(start))
	})
}
