// Package pulse periodically samples scheduler state and republishes it
// as Prometheus gauges, so dashboards see fresh numbers even when no
// request traffic is flowing.
package pulse

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"orchd/pkg/types"
)

var (
	residentModels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orchd",
		Subsystem: "pulse",
		Name:      "resident_local_models",
		Help:      "Number of models currently resident on the local daemon",
	})
	swapTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orchd",
		Subsystem: "pulse",
		Name:      "swap_total",
		Help:      "Model swaps performed since start",
	})
	cloudAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "orchd",
		Subsystem: "pulse",
		Name:      "cloud_available",
		Help:      "Cloud provider availability (1 available, 0 not)",
	}, []string{"key"})
)

func init() {
	prometheus.MustRegister(residentModels, swapTotal, cloudAvailable)
}

// StatsSource is the slice of the scheduler the monitor reads.
type StatsSource interface {
	Stats(ctx context.Context) types.SchedulerStats
}

// Monitor polls a StatsSource on a fixed interval.
type Monitor struct {
	source   StatsSource
	interval time.Duration
	log      zerolog.Logger
}

// New builds a monitor. A non-positive interval defaults to 30 seconds.
func New(source StatsSource, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{source: source, interval: interval, log: log}
}

// Run samples until ctx is cancelled. It takes one sample immediately so
// gauges are populated before the first tick.
func (m *Monitor) Run(ctx context.Context) {
	m.sample(ctx)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	stats := m.source.Stats(ctx)
	residentModels.Set(float64(len(stats.LoadedLocalModels)))
	swapTotal.Set(float64(stats.SwapCount))
	for key, ok := range stats.CloudAvailability {
		v := 0.0
		if ok {
			v = 1.0
		}
		cloudAvailable.WithLabelValues(string(key)).Set(v)
	}
	m.log.Debug().
		Str("current", string(stats.CurrentKey)).
		Int("resident", len(stats.LoadedLocalModels)).
		Int64("swaps", stats.SwapCount).
		Msg("pulse sample")
}
