// Package logctx carries a request- or event-scoped logger through a
// context. The HTTP middleware stores one enriched with trace_id, route and
// request_id; the event bus stores one per delivered event; use case runs add
// use_case on top. Callers read it back with FromOr and their own fallback.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
)

type ctxKey struct{}

// With returns ctx carrying logger. A nil ctx or logger leaves ctx as is.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the scoped logger, or nil when none was stored.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	if logger, ok := ctx.Value(ctxKey{}).(observability.Logger); ok {
		return logger
	}
	return nil
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}
