package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the service-level prometheus counters. Registered on a
// dedicated registry so tests can construct isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	RoutingMatches   *prometheus.CounterVec
	RoutingFallbacks prometheus.Counter
	Consumptions     prometheus.Counter
	ConsumeRejects   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		RoutingMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casaflow_routing_matches_total",
			Help: "Lead routing matches by outcome (rule, fallback_owner, fallback_last_resort).",
		}, []string{"outcome"}),
		RoutingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "casaflow_routing_fallbacks_total",
			Help: "Routing calls that exhausted all rule candidates.",
		}),
		Consumptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "casaflow_credit_consumptions_total",
			Help: "Committed credit consumptions (replays excluded).",
		}),
		ConsumeRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "casaflow_credit_consume_rejects_total",
			Help: "Rejected credit consumptions by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.RoutingMatches, m.RoutingFallbacks, m.Consumptions, m.ConsumeRejects)
	return m
}
