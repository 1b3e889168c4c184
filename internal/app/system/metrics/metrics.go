// Package metrics holds the Prometheus collectors for the service.
//
// A *Metrics is built once in bootstrap against its own registry and handed
// to every component that records something. All methods are nil-safe so
// tests and tools can pass a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	StatementsRecorded  *prometheus.CounterVec
	StatementsStored    prometheus.Gauge
	SequenceConflicts   prometheus.Counter
	IdentityResolutions *prometheus.CounterVec
	UpstreamRequests    *prometheus.CounterVec
	UpstreamDuration    *prometheus.HistogramVec
	TaskRuns            *prometheus.CounterVec

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates a registry with Go and process collectors plus the service
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		StatementsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mysre_statements_recorded_total",
			Help: "Statements appended to the log, by verb.",
		}, []string{"verb"}),
		StatementsStored: f.NewGauge(prometheus.GaugeOpts{
			Name: "mysre_statements_stored",
			Help: "Statements in the log at the last stats refresh.",
		}),
		SequenceConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "mysre_statement_sequence_conflicts_total",
			Help: "Sequence collisions retried by the statement store.",
		}),
		IdentityResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mysre_identity_resolutions_total",
			Help: "Identity resolutions, by source and strategy.",
		}, []string{"source", "strategy"}),
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mysre_upstream_requests_total",
			Help: "Calls to the AI backend, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mysre_upstream_request_duration_seconds",
			Help:    "AI backend call latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}, []string{"tool"}),
		TaskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mysre_task_runs_total",
			Help: "Background job executions, by job and outcome.",
		}, []string{"job", "outcome"}),
		httpInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) StatementRecorded(verb string) {
	if m == nil {
		return
	}
	m.StatementsRecorded.WithLabelValues(verb).Inc()
}

func (m *Metrics) SetStatementsStored(n int64) {
	if m == nil {
		return
	}
	m.StatementsStored.Set(float64(n))
}

func (m *Metrics) SequenceConflict() {
	if m == nil {
		return
	}
	m.SequenceConflicts.Inc()
}

func (m *Metrics) IdentityResolved(source, strategy string) {
	if m == nil {
		return
	}
	m.IdentityResolutions.WithLabelValues(source, strategy).Inc()
}

// ObserveUpstream records one AI backend call.
func (m *Metrics) ObserveUpstream(tool, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(tool, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}

// TaskRun counts one background job execution.
func (m *Metrics) TaskRun(job, outcome string) {
	if m == nil {
		return
	}
	m.TaskRuns.WithLabelValues(job, outcome).Inc()
}

// Instrument measures request count, latency and in-flight requests.
// The route label is the chi route pattern, not the raw path, to keep
// label cardinality bounded.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
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
