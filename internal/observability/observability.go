// Package observability declares the ports the cart service logs, measures
// and traces through. The store, use cases, HTTP handler and order worker
// depend only on these; zap, Prometheus and OpenTelemetry adapters live under
// internal/infrastructure/observability.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability is injected into every component that reports telemetry.
// A nil Observability is replaced by Nop() at construction.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Metrics looks up instruments by key. Unknown keys resolve to no-op
// instruments so a missing registration never fails a cart mutation.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

// Tracer starts spans. Use cases name theirs "UC.<Name>"; the HTTP layer
// names server spans "<METHOD> <route>".
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

// BoundCounter has its labels fixed, for hot paths such as per-route
// request counting.
type BoundCounter interface {
	Add(delta float64)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

type BoundHistogram interface {
	Observe(value float64)
}

// Label is a metric label. Values must stay low-cardinality: route
// templates, use case names and product ids, never cart ids.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

// Field is a structured log field. Unlike labels, fields may carry ids.
type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Logger writes snake_case event messages such as use_case_done and
// http_access.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// MetricKey names a metric registered by the Prometheus adapter. The
// catalogue lives in metrics.go.
type MetricKey string
