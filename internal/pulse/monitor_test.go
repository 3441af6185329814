package pulse

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"orchd/pkg/types"
)

type fakeSource struct {
	calls atomic.Int64
	stats types.SchedulerStats
}

func (f *fakeSource) Stats(ctx context.Context) types.SchedulerStats {
	f.calls.Add(1)
	return f.stats
}

func TestSampleUpdatesGauges(t *testing.T) {
	src := &fakeSource{stats: types.SchedulerStats{
		CurrentKey:        types.KeyCode,
		SwapCount:         7,
		LoadedLocalModels: []string{"m-code"},
		CloudAvailability: map[types.ModelKey]bool{types.KeyCloudCode: true, types.KeyCloudVision: false},
	}}
	m := New(src, time.Minute, zerolog.Nop())
	m.sample(context.Background())

	if got := testutil.ToFloat64(residentModels); got != 1 {
		t.Fatalf("resident=%v", got)
	}
	if got := testutil.ToFloat64(swapTotal); got != 7 {
		t.Fatalf("swaps=%v", got)
	}
	if got := testutil.ToFloat64(cloudAvailable.WithLabelValues(string(types.KeyCloudCode))); got != 1 {
		t.Fatalf("cloud code=%v", got)
	}
	if got := testutil.ToFloat64(cloudAvailable.WithLabelValues(string(types.KeyCloudVision))); got != 0 {
		t.Fatalf("cloud vision=%v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	m := New(src, time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	// wait for the immediate sample plus at least one tick
	deadline := time.After(time.Second)
	for src.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("monitor never sampled")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	m := New(&fakeSource{}, 0, zerolog.Nop())
	if m.interval != 30*time.Second {
		t.Fatalf("interval=%v", m.interval)
	}
}
