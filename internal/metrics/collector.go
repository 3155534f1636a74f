// Package metrics implements coordinator.MetricsReporter on top of
// Prometheus client_golang, as a struct holding one field per metric.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coinfabrik/mpc-coordinator/internal/coordinator"
)

const namespace = "mpccoordinator"

// Collector holds every mpc-coordinator Prometheus metric and implements
// coordinator.MetricsReporter so it can be handed straight to
// coordinator.WithMetrics.
type Collector struct {
	ClientsConnected prometheus.Gauge
	ClientsTotal     prometheus.Counter

	GroupsActive prometheus.Gauge
	GroupsTotal  prometheus.Counter

	SessionsActive *prometheus.GaugeVec
	SessionsTotal  *prometheus.CounterVec
	SessionsReady  *prometheus.CounterVec
}

var _ coordinator.MetricsReporter = (*Collector)(nil)

// NewCollector creates a Collector with every metric registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ClientsConnected,
		c.ClientsTotal,
		c.GroupsActive,
		c.GroupsTotal,
		c.SessionsActive,
		c.SessionsTotal,
		c.SessionsReady,
	)

	return c
}

func newMetrics() *Collector {
	kindLabel := []string{"kind"}

	return &Collector{
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_connected",
			Help:      "Number of clients currently connected to the coordinator.",
		}),
		ClientsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clients_connected_total",
			Help:      "Total clients that have ever connected.",
		}),
		GroupsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups_active",
			Help:      "Number of groups that currently have at least one member.",
		}),
		GroupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_created_total",
			Help:      "Total groups ever created.",
		}),
		SessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions that have been created but not yet reached their readiness threshold, by kind.",
		}, kindLabel),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total sessions ever created, by kind.",
		}, kindLabel),
		SessionsReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ready_total",
			Help:      "Total sessions that reached their readiness threshold, by kind.",
		}, kindLabel),
	}
}

// ClientConnected implements coordinator.MetricsReporter.
func (c *Collector) ClientConnected() {
	c.ClientsConnected.Inc()
	c.ClientsTotal.Inc()
}

// ClientDisconnected implements coordinator.MetricsReporter.
func (c *Collector) ClientDisconnected() {
	c.ClientsConnected.Dec()
}

// GroupCreated implements coordinator.MetricsReporter.
func (c *Collector) GroupCreated() {
	c.GroupsActive.Inc()
	c.GroupsTotal.Inc()
}

// GroupRemoved implements coordinator.MetricsReporter.
func (c *Collector) GroupRemoved() {
	c.GroupsActive.Dec()
}

// SessionCreated implements coordinator.MetricsReporter.
//
// The Registry does not report which kind of session was created, so
// this increments under an "unknown" label; callers who need kind-level
// granularity should wrap the Registry at the dispatch layer instead.
func (c *Collector) SessionCreated() {
	c.SessionsActive.WithLabelValues("unknown").Inc()
	c.SessionsTotal.WithLabelValues("unknown").Inc()
}

// SessionReady implements coordinator.MetricsReporter.
func (c *Collector) SessionReady() {
	c.SessionsActive.WithLabelValues("unknown").Dec()
	c.SessionsReady.WithLabelValues("unknown").Inc()
}
