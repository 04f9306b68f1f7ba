package autosave

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics are observational counters. They never influence scheduling.
type Metrics struct {
	TotalSaves          int64
	BatchedSaves        int64
	FailedSaves         int64
	LastSaveDuration    time.Duration
	AverageSaveDuration time.Duration
}

// metricsRecorder keeps the Metrics snapshot (guarded by Manager.mu) and
// mirrors every update into OpenTelemetry instruments.
type metricsRecorder struct {
	current Metrics

	saves    metric.Int64Counter
	batched  metric.Int64Counter
	failures metric.Int64Counter
	fields   metric.Int64Histogram
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

func newMetricsRecorder(meter metric.Meter, logger *slog.Logger) *metricsRecorder {
	r, err := buildRecorder(meter)
	if err != nil {
		logger.Warn("autosave instruments unavailable, using noop meter", "error", err)
		r, _ = buildRecorder(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return r
}

func buildRecorder(meter metric.Meter) (*metricsRecorder, error) {
	r := &metricsRecorder{}
	var err error

	if r.saves, err = meter.Int64Counter("draft.saves.total",
		metric.WithDescription("Successful draft saves"),
		metric.WithUnit("{save}"),
	); err != nil {
		return nil, err
	}
	if r.batched, err = meter.Int64Counter("draft.saves.batched",
		metric.WithDescription("Saves that went out as a coalesced batch"),
		metric.WithUnit("{save}"),
	); err != nil {
		return nil, err
	}
	if r.failures, err = meter.Int64Counter("draft.saves.failed",
		metric.WithDescription("Draft saves rejected by the persist function"),
		metric.WithUnit("{save}"),
	); err != nil {
		return nil, err
	}
	if r.fields, err = meter.Int64Histogram("draft.save.fields",
		metric.WithDescription("Fields carried by one save"),
		metric.WithUnit("{field}"),
	); err != nil {
		return nil, err
	}
	if r.duration, err = meter.Float64Histogram("draft.save.duration",
		metric.WithDescription("Persist call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, err
	}
	if r.inflight, err = meter.Int64UpDownCounter("draft.saves.inflight",
		metric.WithDescription("Persist calls currently outstanding"),
		metric.WithUnit("{save}"),
	); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *metricsRecorder) recordSuccess(ctx context.Context, d time.Duration, fields int) {
	r.current.TotalSaves++
	r.current.BatchedSaves++
	r.current.LastSaveDuration = d
	n := r.current.TotalSaves
	r.current.AverageSaveDuration = time.Duration((int64(r.current.AverageSaveDuration)*(n-1) + int64(d)) / n)

	r.saves.Add(ctx, 1)
	r.batched.Add(ctx, 1)
	r.fields.Record(ctx, int64(fields))
	r.duration.Record(ctx, d.Seconds())
}

func (r *metricsRecorder) recordFailure(ctx context.Context, d time.Duration) {
	r.current.FailedSaves++
	r.failures.Add(ctx, 1)
	r.duration.Record(ctx, d.Seconds())
}

func (r *metricsRecorder) addInflight(ctx context.Context, delta int64) {
	r.inflight.Add(ctx, delta)
}

// reset zeroes the snapshot. Exported OTel counters are cumulative and unaffected.
func (r *metricsRecorder) reset() {
	r.current = Metrics{}
}
