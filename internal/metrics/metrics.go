// Package metrics exposes prometheus collectors for the loader.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LoadsTotal counts load attempts by outcome: loaded, memoized, conflict
	// or error.
	LoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modcell_loads_total",
			Help: "Number of module load attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ResolutionsTotal counts resolution requests by the step that settled
	// them.
	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modcell_resolutions_total",
			Help: "Number of module resolutions by the step that settled them.",
		},
		[]string{"step"},
	)

	// ContextsLive tracks the number of isolation contexts that have not been
	// released, the default context included.
	ContextsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "modcell_contexts_live",
			Help: "Number of live isolation contexts.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LoadsTotal,
		ResolutionsTotal,
		ContextsLive,
	)
}
