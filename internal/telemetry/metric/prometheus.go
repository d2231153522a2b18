package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

const namespace = "webstore"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Cross-tab event outcomes.
const (
	CrossTabDelivered = "delivered"
	CrossTabIgnored   = "ignored"
	CrossTabMalformed = "malformed"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	TTLEvictions       *prometheus.CounterVec
	DecryptionFailures prometheus.Counter
	FallbackAttempts   *prometheus.CounterVec
	CrossTabEvents     *prometheus.CounterVec
}

// NewRegistry creates a registry with every webstore metric registered,
// plus the Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Storage operations by backend, operation and result.",
		}, []string{"backend", "op", "result"}),

		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Storage operation latency.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"backend", "op"}),

		TTLEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_evictions_total",
			Help:      "Entries evicted on read because they expired.",
		}, []string{"backend"}),

		DecryptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decryption_failures_total",
			Help:      "Encrypted entries that failed authentication.",
		}),

		FallbackAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_attempts_total",
			Help:      "Backends tried by fallback operations, by result.",
		}, []string{"backend", "result"}),

		CrossTabEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crosstab_events_total",
			Help:      "Change events received from other contexts, by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.OperationsTotal,
		r.OperationDuration,
		r.TTLEvictions,
		r.DecryptionFailures,
		r.FallbackAttempts,
		r.CrossTabEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Register adds an extra collector.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.registry.Register(c)
}

// ObserveOperation records one storage operation started at start.
func (r *Registry) ObserveOperation(backend domain.Backend, op string, start time.Time, err error) {
	if r == nil {
		return
	}
	b := backend.String()
	r.OperationsTotal.WithLabelValues(b, op, resultOf(err)).Inc()
	r.OperationDuration.WithLabelValues(b, op).Observe(time.Since(start).Seconds())
}

// ObserveEviction counts an entry evicted on read.
func (r *Registry) ObserveEviction(backend domain.Backend) {
	if r == nil {
		return
	}
	r.TTLEvictions.WithLabelValues(backend.String()).Inc()
}

// ObserveDecryptionFailure counts a failed decryption.
func (r *Registry) ObserveDecryptionFailure() {
	if r == nil {
		return
	}
	r.DecryptionFailures.Inc()
}

// ObserveFallback counts one backend tried by a fallback chain.
func (r *Registry) ObserveFallback(backend domain.Backend, err error) {
	if r == nil {
		return
	}
	r.FallbackAttempts.WithLabelValues(backend.String(), resultOf(err)).Inc()
}

// ObserveCrossTab counts a received change event.
func (r *Registry) ObserveCrossTab(outcome string) {
	if r == nil {
		return
	}
	r.CrossTabEvents.WithLabelValues(outcome).Inc()
}

// resultOf maps err to a bounded label value: "ok", a domain error code, or
// "error".
func resultOf(err error) string {
	if err == nil {
		return ResultOK
	}
	if code := domain.GetErrorCode(err); code != "" {
		return code
	}
	return ResultError
}
