package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "pane-relay"

// Metrics holds all OTEL metric instruments for pane-relay.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Classification counter, partitioned by detection method.
	Classifications metric.Int64Counter

	// Binding cache counters.
	BindingHits          metric.Int64Counter
	BindingMisses        metric.Int64Counter
	BindingInvalidations metric.Int64Counter

	// Routing counters.
	Provisions metric.Int64Counter
	Deliveries metric.Int64Counter
	Retries    metric.Int64Counter

	// LLM token counters for the summary auxiliary
	// (partitioned by provider + model via attributes).
	InputTokens  metric.Int64Counter
	OutputTokens metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Classifications, err = meter.Int64Counter("classifications.total",
		metric.WithDescription("Panes accepted as assistant candidates, partitioned by detection method"))
	if err != nil {
		return nil, err
	}

	m.BindingHits, err = meter.Int64Counter("binding_cache.hits",
		metric.WithDescription("Remembered bindings that passed the liveness check and were used"))
	if err != nil {
		return nil, err
	}

	m.BindingMisses, err = meter.Int64Counter("binding_cache.misses",
		metric.WithDescription("Resolutions that found no remembered binding for the root"))
	if err != nil {
		return nil, err
	}

	m.BindingInvalidations, err = meter.Int64Counter("binding_cache.invalidations",
		metric.WithDescription("Remembered bindings cleared after a failed liveness check"))
	if err != nil {
		return nil, err
	}

	m.Provisions, err = meter.Int64Counter("provisions.total",
		metric.WithDescription("New assistant windows provisioned, partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.Deliveries, err = meter.Int64Counter("deliveries.total",
		metric.WithDescription("Payload deliveries, partitioned by outcome"))
	if err != nil {
		return nil, err
	}

	m.Retries, err = meter.Int64Counter("retries.total",
		metric.WithDescription("Retry attempts beyond the first, partitioned by operation"))
	if err != nil {
		return nil, err
	}

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed by pane summaries"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed by pane summaries"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordClassification records an accepted candidate with its method.
func (m *Metrics) RecordClassification(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.Classifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("detection.method", method),
	))
}

// RecordBindingHit records a remembered binding used after verification.
func (m *Metrics) RecordBindingHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.BindingHits.Add(ctx, 1)
}

// RecordBindingMiss records a resolution with no remembered binding.
func (m *Metrics) RecordBindingMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.BindingMisses.Add(ctx, 1)
}

// RecordBindingInvalidation records a binding cleared as stale.
func (m *Metrics) RecordBindingInvalidation(ctx context.Context) {
	if m == nil {
		return
	}
	m.BindingInvalidations.Add(ctx, 1)
}

// RecordProvision records a provisioning attempt with its outcome
// ("ok" or "failed").
func (m *Metrics) RecordProvision(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Provisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provision.outcome", outcome),
	))
}

// RecordDelivery records a delivery with its outcome
// ("ok", "partial", or "failed").
func (m *Metrics) RecordDelivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("delivery.outcome", outcome),
	))
}

// RecordRetry records one retry attempt for the named operation.
func (m *Metrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.Retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("retry.operation", operation),
	))
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
}
