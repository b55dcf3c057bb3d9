// Package metrics exposes Prometheus counters for booking decisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for the booking service.
type Metrics struct {
	// ValidationsTotal counts proposal checks by outcome ("ok" or a validation kind).
	ValidationsTotal *prometheus.CounterVec

	// TransitionsTotal counts status actions by action and result.
	TransitionsTotal *prometheus.CounterVec

	// AccessChecksTotal counts door/wifi access checks by result.
	AccessChecksTotal *prometheus.CounterVec

	// SweptTotal counts reservations changed by background sweeps.
	SweptTotal *prometheus.CounterVec

	// RequestDuration observes HTTP handler latency per route.
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers the booking metrics on reg. When reg is
// nil a private registry is used.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of reservation proposals checked",
			},
			[]string{"outcome"},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of reservation status actions",
			},
			[]string{"action", "result"},
		),

		AccessChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_checks_total",
				Help:      "Total number of access checks",
			},
			[]string{"result"},
		),

		SweptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_reservations_total",
				Help:      "Total number of reservations changed by sweeps",
			},
			[]string{"sweep"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time spent serving HTTP requests",
				Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2},
			},
			[]string{"route", "status"},
		),

		gatherer: reg,
	}
}

// ObserveValidation records the outcome of one proposal check.
func (m *Metrics) ObserveValidation(outcome string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransition records one status action.
func (m *Metrics) ObserveTransition(action, result string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(action, result).Inc()
}

// ObserveAccessCheck records one access check.
func (m *Metrics) ObserveAccessCheck(authorized bool) {
	if m == nil {
		return
	}
	result := "denied"
	if authorized {
		result = "granted"
	}
	m.AccessChecksTotal.WithLabelValues(result).Inc()
}

// AddSwept adds count reservations changed by the named sweep.
func (m *Metrics) AddSwept(sweep string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SweptTotal.WithLabelValues(sweep).Add(float64(count))
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
