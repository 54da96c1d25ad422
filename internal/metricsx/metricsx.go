// Package metricsx wires the controller's Prometheus collectors, adapted
// from the teacher's internal/metrics/prometheus.go InitPrometheus helper:
// same register-or-reuse pattern, but gauges/counters for registry and
// cluster events instead of stratum share counts.
package metricsx

import "github.com/prometheus/client_golang/prometheus"

// Collectors holds every Prometheus collector the controller exposes.
type Collectors struct {
	ComputersStarting prometheus.Gauge
	ComputersOnline   prometheus.Gauge
	ServersLinked     prometheus.Gauge
	SpawnsTotal       *prometheus.CounterVec
	SpawnFailures     *prometheus.CounterVec
	PingTimeouts      *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
	ConnectionsBanned prometheus.Counter
}

// register registers c, or returns the already-registered collector if a
// previous call (e.g. in a test re-running Init) already owns the
// name, mirroring the teacher's register-or-reuse InitPrometheus helper.
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// Init creates and registers every collector under the given namespace.
func Init(namespace string) *Collectors {
	c := &Collectors{}

	c.ComputersStarting = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "computers_starting",
		Help:      "Number of computers currently in the starting state",
	}))

	c.ComputersOnline = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "computers_online",
		Help:      "Number of computers currently in the online state",
	}))

	c.ServersLinked = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "servers_linked",
		Help:      "Number of minigame servers currently linked across all clusters",
	}))

	c.SpawnsTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "spawns_total",
		Help:      "Total number of container spawn attempts, by kind",
	}, []string{"kind"}))

	c.SpawnFailures = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "spawn_failures_total",
		Help:      "Total number of container spawn failures, by kind",
	}, []string{"kind"}))

	c.PingTimeouts = register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ping_timeouts_total",
		Help:      "Total number of cluster ping rounds that timed out without a Pong, by kind",
	}, []string{"kind"}))

	c.ConnectionsActive = register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Number of currently accepted, not-yet-authenticated or authenticated connections",
	}))

	c.ConnectionsBanned = register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_banned_total",
		Help:      "Total number of source IPs banned for exceeding the connection rate limit",
	}))

	return c
}
