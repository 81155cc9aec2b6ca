package metrics

import (
	"net/http"
	"strconv"

	"toolrent-backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "toolrent"

// Metrics holds every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OperationsTotal     *prometheus.CounterVec
	DebtRecordedTotal   prometheus.Counter
	DebtSettledTotal    prometheus.Counter
	JobRunsTotal        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome (ok, an error kind, or infrastructure).",
		}, []string{"operation", "outcome"}),
		DebtRecordedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debt_recorded_amount_total",
			Help:      "Sum of fines and damage charges billed to customers.",
		}),
		DebtSettledTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debt_settled_amount_total",
			Help:      "Sum of customer debt settled.",
		}),
		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by job and outcome.",
		}, []string{"job", "outcome"}),
	}
}

// Outcome labels err for OperationsTotal.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if de, ok := domain.AsError(err); ok {
		return string(de.Kind)
	}
	return "infrastructure"
}

func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) ObserveDebtRecorded(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.DebtRecordedTotal.Add(amount.InexactFloat64())
}

func (m *Metrics) ObserveDebtSettled(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.DebtSettledTotal.Add(amount.InexactFloat64())
}

func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.JobRunsTotal.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func statusLabel(code int) string {
	if code == 0 {
		code = http.StatusOK
	}
	return strconv.Itoa(code)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
