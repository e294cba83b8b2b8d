// Package metrics provides OpenTelemetry instrumentation for the retrieval
// core: traversal latency, anchor search counts, and gather throughput. A
// Prometheus exporter bridge is available via InitProvider so the numbers
// can be scraped from a standard /metrics endpoint.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/wrenfield/ctxcore"

// Metrics holds every OpenTelemetry instrument the core records against.
// All fields are safe for concurrent use.
type Metrics struct {
	// TraversalDuration tracks how long a single traverse.From call takes.
	TraversalDuration metric.Float64Histogram

	// GatherDuration tracks end-to-end context-gathering latency across all
	// anchors for one request.
	GatherDuration metric.Float64Histogram

	// AnchorsFound counts anchors produced per request, labeled by source
	// (semantic or fts).
	AnchorsFound metric.Int64Counter

	// ContextRowsReturned counts rows returned per gather call.
	ContextRowsReturned metric.Int64Counter

	// VerdictsResolved counts verdict resolutions, labeled by the layer that
	// produced the answer (graph, structured, text) and the outcome.
	VerdictsResolved metric.Int64Counter

	// StoreErrors counts GraphStore call failures, labeled by operation.
	StoreErrors metric.Int64Counter

	// ActiveGathers tracks context-gather calls currently in flight.
	ActiveGathers metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// New creates a fully initialized Metrics using the given MeterProvider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.TraversalDuration, err = m.Float64Histogram("ctxcore.traversal.duration",
		metric.WithDescription("Latency of a single graph traversal."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GatherDuration, err = m.Float64Histogram("ctxcore.gather.duration",
		metric.WithDescription("End-to-end context-gathering latency across all anchors."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnchorsFound, err = m.Int64Counter("ctxcore.anchors.found",
		metric.WithDescription("Anchors found, by source."),
	); err != nil {
		return nil, err
	}
	if met.ContextRowsReturned, err = m.Int64Counter("ctxcore.context.rows",
		metric.WithDescription("Context rows returned per gather call."),
	); err != nil {
		return nil, err
	}
	if met.VerdictsResolved, err = m.Int64Counter("ctxcore.verdicts.resolved",
		metric.WithDescription("Verdicts resolved, by layer and outcome."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("ctxcore.store.errors",
		metric.WithDescription("GraphStore call failures, by operation."),
	); err != nil {
		return nil, err
	}
	if met.ActiveGathers, err = m.Int64UpDownCounter("ctxcore.gather.active",
		metric.WithDescription("Context-gather calls currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level Metrics instance, built lazily from
// otel.GetMeterProvider(). Panics if instrument creation fails, which
// should not happen against the global provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default instruments: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordAnchorsFound increments AnchorsFound for the given source ("semantic"
// or "fts") by count.
func (m *Metrics) RecordAnchorsFound(ctx context.Context, source string, count int64) {
	m.AnchorsFound.Add(ctx, count, metric.WithAttributes(attribute.String("source", source)))
}

// RecordVerdict increments VerdictsResolved for the given layer and outcome.
func (m *Metrics) RecordVerdict(ctx context.Context, layer, outcome string) {
	m.VerdictsResolved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("layer", layer), attribute.String("outcome", outcome)),
	)
}

// RecordStoreError increments StoreErrors for the given operation.
func (m *Metrics) RecordStoreError(ctx context.Context, operation string) {
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
