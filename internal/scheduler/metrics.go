package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	swapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orchd",
		Subsystem: "scheduler",
		Name:      "swaps_total",
		Help:      "Total local model load operations (no-op switches excluded)",
	})

	probeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orchd",
		Subsystem: "scheduler",
		Name:      "probe_failures_total",
		Help:      "Failed loaded-models probes against the inference daemon",
	})
)

func init() {
	prometheus.MustRegister(swapsTotal, probeFailuresTotal)
}
