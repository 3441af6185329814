package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchd",
			Subsystem: "pipeline",
			Name:      "attempts_total",
			Help:      "Execution attempts by outcome",
		},
		[]string{"outcome"},
	)

	escalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "orchd",
		Subsystem: "pipeline",
		Name:      "escalations_total",
		Help:      "Attempts escalated to a remote model key",
	})

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orchd",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Pipeline runs by terminal state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(attemptsTotal, escalationsTotal, requestsTotal)
}
