// Package observe provides OpenTelemetry metrics for the sequencing engine.
//
// Metrics are recorded through the OpenTelemetry Metrics API. Tests should use
// [NewMetrics] with a custom [metric.MeterProvider] backed by a manual reader
// to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/opencode-ai/cutscene"

// Metrics holds the metric instruments used by the manager and scheduler.
type Metrics struct {
	// SequencesStarted counts Interact calls. Attributes: sequence, kind.
	SequencesStarted metric.Int64Counter

	// SequencesEnded counts normal ends. Attributes: sequence, kind.
	SequencesEnded metric.Int64Counter

	// SequencesKilled counts forced stops. Attributes: sequence.
	SequencesKilled metric.Int64Counter

	// ActiveSequences tracks registered sequences.
	ActiveSequences metric.Int64UpDownCounter

	// ModeChanges counts global mode transitions. Attributes: from, to.
	ModeChanges metric.Int64Counter

	// Autosaves counts autosave attempts. Attributes: status (written, skipped, failed).
	Autosaves metric.Int64Counter

	// TickDuration tracks how long one scheduler tick takes, in seconds.
	TickDuration metric.Float64Histogram
}

var tickBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SequencesStarted, err = m.Int64Counter("cutscene.sequences.started",
		metric.WithDescription("Sequences started."),
	); err != nil {
		return nil, err
	}
	if met.SequencesEnded, err = m.Int64Counter("cutscene.sequences.ended",
		metric.WithDescription("Sequences that reached their end."),
	); err != nil {
		return nil, err
	}
	if met.SequencesKilled, err = m.Int64Counter("cutscene.sequences.killed",
		metric.WithDescription("Sequences stopped by a kill."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSequences, err = m.Int64UpDownCounter("cutscene.sequences.active",
		metric.WithDescription("Sequences currently registered."),
	); err != nil {
		return nil, err
	}
	if met.ModeChanges, err = m.Int64Counter("cutscene.mode.changes",
		metric.WithDescription("Global mode transitions."),
	); err != nil {
		return nil, err
	}
	if met.Autosaves, err = m.Int64Counter("cutscene.autosaves",
		metric.WithDescription("Autosave attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TickDuration, err = m.Float64Histogram("cutscene.tick.duration",
		metric.WithDescription("Time spent in one scheduler tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance built from the global
// meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSequenceStarted increments the started counter and the active gauge.
func (m *Metrics) RecordSequenceStarted(ctx context.Context, sequence, kind string) {
	attrs := metric.WithAttributes(
		attribute.String("sequence", sequence),
		attribute.String("kind", kind),
	)
	m.SequencesStarted.Add(ctx, 1, attrs)
	m.ActiveSequences.Add(ctx, 1)
}

// RecordSequenceEnded increments the ended counter and decrements the active gauge.
func (m *Metrics) RecordSequenceEnded(ctx context.Context, sequence, kind string) {
	m.SequencesEnded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sequence", sequence),
		attribute.String("kind", kind),
	))
	m.ActiveSequences.Add(ctx, -1)
}

// RecordSequenceKilled increments the killed counter and decrements the active gauge.
func (m *Metrics) RecordSequenceKilled(ctx context.Context, sequence string) {
	m.SequencesKilled.Add(ctx, 1, metric.WithAttributes(attribute.String("sequence", sequence)))
	m.ActiveSequences.Add(ctx, -1)
}

// RecordModeChange counts a mode transition.
func (m *Metrics) RecordModeChange(ctx context.Context, from, to string) {
	m.ModeChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordAutosave counts an autosave outcome.
func (m *Metrics) RecordAutosave(ctx context.Context, status string) {
	m.Autosaves.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordTick observes the wall time spent in one scheduler tick.
func (m *Metrics) RecordTick(ctx context.Context, d time.Duration, frozen bool) {
	m.TickDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("frozen", frozen)))
}
