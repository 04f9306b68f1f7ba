package autosave

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/murkotick/draft-autosave-service/internal/app/draft/contracts"
	"github.com/murkotick/draft-autosave-service/internal/app/draft/domain"
	"github.com/murkotick/draft-autosave-service/internal/pkg/clock"
)

const instrumentationName = "github.com/murkotick/draft-autosave-service/autosave"

// PersistFunc durably writes a partial patch of draft fields. It must return nil
// only after the write is confirmed, and must accept resends of fields it has
// already stored.
type PersistFunc func(ctx context.Context, fields map[string]any) error

// RetryPolicy enables automatic retries of failed scheduled saves.
// The zero value disables them: a failed save then waits for the next edit or an
// explicit Flush.
type RetryPolicy struct {
	MaxRetries          int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

func (p RetryPolicy) Enabled() bool {
	return p.MaxRetries > 0
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.RandomizationFactor
	b.Reset()
	return b
}

// Options configures a Manager. Only Persist is needed for autosave to run;
// everything else has a default.
type Options struct {
	// Policies resolves field policies. Nil applies domain.DefaultPolicy to every field.
	Policies *domain.PolicyRegistry
	Clock    clock.Clock
	// Persist is the save function used by edits and Flush until ScheduleSave replaces it.
	Persist PersistFunc
	// Journal mirrors unsaved edits locally. Optional.
	Journal contracts.Journal
	Logger  *slog.Logger
	Meter   metric.Meter
	Tracer  trace.Tracer

	// SaveTimeout bounds a single persist call. Zero means no timeout.
	SaveTimeout time.Duration
	Retry       RetryPolicy

	// SaveRate caps dispatched saves per second; SaveBurst is the bucket size.
	// A non-positive SaveRate disables the limit.
	SaveRate  rate.Limit
	SaveBurst int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Meter == nil {
		o.Meter = otel.Meter(instrumentationName)
	}
	if o.Tracer == nil {
		o.Tracer = otel.Tracer(instrumentationName)
	}
	if o.SaveBurst <= 0 {
		o.SaveBurst = 1
	}
	return o
}
