package engine

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the optional Prometheus collectors, grounded on
// facade/hioload.go's EnableMetrics toggle. Only constructed when
// Config.EnableMetrics is true; every call site nil-checks the *metrics
// field on Engine before touching it.
type metrics struct {
	registry    *prometheus.Registry
	submitted   *prometheus.CounterVec
	completed   *prometheus.CounterVec
	persisting  prometheus.Gauge
	sendResults *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlreq_submitted_total",
			Help: "Requests submitted to the engine, by kind (http, ws).",
		}, []string{"kind"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlreq_completed_total",
			Help: "Requests completed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		persisting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "urlreq_persisting_connections",
			Help: "Currently persisting WebSocket connections.",
		}),
		sendResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "urlreq_send_results_total",
			Help: "WebSocket send attempts, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(m.submitted, m.completed, m.persisting, m.sendResults)
	return m
}

// Registry exposes the Prometheus registry for a caller to serve via
// promhttp, or nil if Config.EnableMetrics was false.
func (e *Engine) Registry() *prometheus.Registry {
	if e.metrics == nil {
		return nil
	}
	return e.metrics.registry
}
