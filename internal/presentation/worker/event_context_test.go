package workerpresentation

import (
	"context"
	"testing"

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithEventContextInjectsEventLogger(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.InfoLevel)
	base := zaplogger.New(zap.New(core))
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	// Act
	ctx = WithEventContext(ctx, base, nil, domcart.CartClosedEvent{CartID: "c1"}, map[string]string{
		"event_id": "evt-1",
		"cart_id":  "c1",
		"empty":    "",
	})
	logctx.From(ctx).Info("handled")

	// Assert
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "cart.closed", fields["event"])
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "c1", fields["cart_id"])
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, sc.SpanID().String(), fields["span_id"])
	assert.NotContains(t, fields, "empty")
}

func TestWithEventContextGeneratesEventID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx := WithEventContext(context.Background(), zaplogger.New(zap.New(core)), nil, nil, nil)
	logctx.From(ctx).Info("handled")

	fields := logs.All()[0].ContextMap()
	assert.NotEmpty(t, fields["event_id"])
	assert.NotContains(t, fields, "trace_id")
}
