package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mediagrab/internal/application/status"
	domain "mediagrab/internal/domain/download"
)

// Metrics tracks HTTP request metrics and registry job gauges.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewMetrics creates a registry with request metrics and a jobs-by-state
// gauge backed by the job counter.
func NewMetrics(counter status.JobCounter) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of currently active HTTP requests.",
		}),
	}

	registry.MustRegister(m.requests, m.duration, m.inflight, newJobsCollector(counter))
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request count, duration, and in-flight gauge.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		rw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := routePath(r)
		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(rw.code)).Inc()
		m.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// routePath uses the route template so job ids do not explode label
// cardinality.
func routePath(r *http.Request) string {
	if route := muxCurrentRoute(r); route != "" {
		return route
	}
	return r.URL.Path
}

type jobsCollector struct {
	counter status.JobCounter
	desc    *prometheus.Desc
}

func newJobsCollector(counter status.JobCounter) *jobsCollector {
	return &jobsCollector{
		counter: counter,
		desc: prometheus.NewDesc(
			"download_jobs",
			"Number of retained download jobs by state.",
			[]string{"state"}, nil,
		),
	}
}

func (c *jobsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *jobsCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.counter.CountByState()
	if err != nil {
		return
	}
	for _, state := range []domain.JobState{domain.StateQueued, domain.StateRunning, domain.StateCompleted, domain.StateFailed} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts[state]), string(state))
	}
}
