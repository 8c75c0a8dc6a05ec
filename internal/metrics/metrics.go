package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loan_engine"

// Recorder holds the engine counters. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	registered prometheus.Counter
	rejected   *prometheus.CounterVec
	extended   prometheus.Counter
	removed    prometheus.Counter
	requests   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_registered_total",
			Help:      "Number of loans registered.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_rejected_total",
			Help:      "Number of rejected register or extend attempts by reason.",
		}, []string{"operation", "reason"}),
		extended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_extended_total",
			Help:      "Number of loan extensions.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_removed_total",
			Help:      "Number of loans removed.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
	}

	r.registry.MustRegister(
		r.registered,
		r.rejected,
		r.extended,
		r.removed,
		r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

func (r *Recorder) LoanRegistered() {
	if r == nil {
		return
	}
	r.registered.Inc()
}

func (r *Recorder) LoanRejected(operation, reason string) {
	if r == nil {
		return
	}
	r.rejected.WithLabelValues(operation, reason).Inc()
}

func (r *Recorder) LoanExtended() {
	if r == nil {
		return
	}
	r.extended.Inc()
}

func (r *Recorder) LoanRemoved() {
	if r == nil {
		return
	}
	r.removed.Inc()
}

func (r *Recorder) Request(method, status string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, status).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
