package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumInt(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestSequenceLifecycleCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSequenceStarted(ctx, "intro", "blocking")
	m.RecordSequenceStarted(ctx, "ambient", "background")
	m.RecordSequenceEnded(ctx, "intro", "blocking")
	m.RecordSequenceKilled(ctx, "ambient")

	rm := collect(t, reader)
	if got := sumInt(t, rm, "cutscene.sequences.started"); got != 2 {
		t.Errorf("started = %d, want 2", got)
	}
	if got := sumInt(t, rm, "cutscene.sequences.ended"); got != 1 {
		t.Errorf("ended = %d, want 1", got)
	}
	if got := sumInt(t, rm, "cutscene.sequences.killed"); got != 1 {
		t.Errorf("killed = %d, want 1", got)
	}
	if got := sumInt(t, rm, "cutscene.sequences.active"); got != 0 {
		t.Errorf("active = %d, want 0", got)
	}
}

func TestAutosaveAndModeCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAutosave(ctx, "written")
	m.RecordAutosave(ctx, "skipped")
	m.RecordModeChange(ctx, "normal", "cutscene")
	m.RecordTick(ctx, 2*time.Millisecond, false)

	rm := collect(t, reader)
	if got := sumInt(t, rm, "cutscene.autosaves"); got != 2 {
		t.Errorf("autosaves = %d, want 2", got)
	}
	if got := sumInt(t, rm, "cutscene.mode.changes"); got != 1 {
		t.Errorf("mode changes = %d, want 1", got)
	}
	hist, ok := findMetric(rm, "cutscene.tick.duration").Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("unexpected tick histogram: %+v", hist)
	}
}
