package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// observability holds the optional logger, tracer and metric instruments.
// Every field may be nil; observe checks before using each one.
type observability struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *metrics
	slowThreshold time.Duration
}

type metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	calls, err := meter.Int64Counter("skillswap.db.calls",
		metric.WithDescription("Repository calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating calls counter: %w", err)
	}
	duration, err := meter.Float64Histogram("skillswap.db.duration",
		metric.WithDescription("Repository call duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating duration histogram: %w", err)
	}
	errs, err := meter.Int64Counter("skillswap.db.errors",
		metric.WithDescription("Repository calls that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating errors counter: %w", err)
	}
	return &metrics{calls: calls, duration: duration, errors: errs}, nil
}

// observe runs fn inside a span named after the operation and records its
// duration. Expected outcomes such as "not found" are returned as errors by
// fn too, so they are counted; the span status is set from the error.
func (db *DB) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var span trace.Span
	if db.obs.tracer != nil {
		ctx, span = db.obs.tracer.Start(ctx, "sqlite."+operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "sqlite"),
				attribute.String("db.operation", operation),
			),
		)
		defer span.End()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if m := db.obs.metrics; m != nil {
		attrs := metric.WithAttributes(attribute.String("db.operation", operation))
		m.calls.Add(ctx, 1, attrs)
		m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
		if err != nil {
			m.errors.Add(ctx, 1, attrs)
		}
	}

	if db.obs.logger != nil && elapsed >= db.obs.slowThreshold {
		db.obs.logger.WarnContext(ctx, "slow query",
			slog.String("operation", operation),
			slog.Duration("duration", elapsed),
		)
	}

	return err
}
