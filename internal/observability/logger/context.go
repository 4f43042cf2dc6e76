package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext injects a logger into the context. Used by middlewares to
// propagate a scoped logger carrying request fields.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From extracts the logger from the context. If no logger was injected the
// singleton is returned, so From(ctx) is always safe to call.
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return L()
}

// FromWithFields extracts the logger from the context and adds extra fields.
// Shortcut for From(ctx).With(fields...).
func FromWithFields(ctx context.Context, fields ...zap.Field) *zap.Logger {
	return From(ctx).With(fields...)
}
