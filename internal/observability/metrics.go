package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/spec-kit/ticket-warehouse/internal/events"
)

const namespace = "ticket_warehouse"

// Metrics holds the Prometheus collectors for pipeline runs and the reporting API.
type Metrics struct {
	StepsTotal      *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	RowsWritten     *prometheus.CounterVec
	RowsSkipped     *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	LastRunSuccess  prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_steps_total",
			Help:      "Pipeline steps finished by source, step and outcome",
		},
		[]string{"source", "step", "outcome"},
	)
	m.StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_step_duration_seconds",
			Help:      "Pipeline step duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"source", "step"},
	)
	m.RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Warehouse rows inserted or upserted",
		},
		[]string{"source", "step"},
	)
	m.RowsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Source records or rows skipped",
		},
		[]string{"source", "step"},
	)
	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome",
		},
		[]string{"outcome"},
	)
	m.LastRunSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		},
	)
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)
	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by route, method and error code",
		},
		[]string{"path", "method", "code"},
	)

	m.registry.MustRegister(
		m.StepsTotal,
		m.StepDuration,
		m.RowsWritten,
		m.RowsSkipped,
		m.RunsTotal,
		m.LastRunSuccess,
		m.RequestsTotal,
		m.RequestDuration,
		m.ErrorsTotal,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a pushgateway. Batch runs end before any scrape.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(path, method, code).Inc()
}

// RecordStep records the outcome of one pipeline step.
func (m *Metrics) RecordStep(step events.StepPayload, outcome string) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(step.Source, step.Step, outcome).Inc()
	m.StepDuration.WithLabelValues(step.Source, step.Step).Observe(step.Duration.Seconds())
	m.RowsWritten.WithLabelValues(step.Source, step.Step).Add(float64(step.Rows))
	m.RowsSkipped.WithLabelValues(step.Source, step.Step).Add(float64(step.Skipped))
}

// Subscribe feeds pipeline lifecycle events into the collectors.
func (m *Metrics) Subscribe(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventStepSucceeded, func(_ context.Context, e events.Event) error {
		if step, ok := e.Payload.(events.StepPayload); ok {
			m.RecordStep(step, "success")
		}
		return nil
	})
	dispatcher.Subscribe(events.EventStepFailed, func(_ context.Context, e events.Event) error {
		if step, ok := e.Payload.(events.StepPayload); ok {
			m.RecordStep(step, "failure")
		}
		return nil
	})
	dispatcher.Subscribe(events.EventRunSucceeded, func(_ context.Context, e events.Event) error {
		m.RunsTotal.WithLabelValues("success").Inc()
		m.LastRunSuccess.Set(float64(e.Timestamp.Unix()))
		return nil
	})
	dispatcher.Subscribe(events.EventRunFailed, func(context.Context, events.Event) error {
		m.RunsTotal.WithLabelValues("failure").Inc()
		return nil
	})
}
