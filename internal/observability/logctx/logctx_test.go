package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
)

type namedLogger struct {
	observability.Logger
	name string
}

func TestFromOrPrefersScopedLogger(t *testing.T) {
	// Arrange
	scoped := namedLogger{Logger: observability.NopLogger(), name: "event"}
	fallback := namedLogger{Logger: observability.NopLogger(), name: "base"}
	ctx := With(context.Background(), scoped)

	// Act
	got := FromOr(ctx, fallback)

	// Assert
	assert.Equal(t, "event", got.(namedLogger).name)
}

func TestFromOrFallsBackWithoutScopedLogger(t *testing.T) {
	fallback := observability.NopLogger()

	assert.Nil(t, From(context.Background()))
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))
}

func TestWithIgnoresNilLogger(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, ctx, With(ctx, nil))
}
