// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services read them. The engines never sample
// the wall clock directly — every time-gated decision reads the request-pinned
// timestamp via Now(ctx), which keeps them deterministic and testable.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithCaller(ctx, domain.Caller{ID: "ops-1"})
package requestcontext

import (
	"context"
	"time"

	"aurum/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Caller retrieves the authenticated caller from the context.
// Returns the zero Caller if not set.
func Caller(ctx context.Context) domain.Caller {
	if c, ok := ctx.Value(callerKey{}).(domain.Caller); ok {
		return c
	}
	return domain.Caller{}
}

// WithCaller injects an authenticated caller into the context.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from the context. Falls back to
// time.Now() for non-HTTP contexts (workers, CLI) where the middleware did
// not run.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins a specific time in a context. Used by the request-time
// middleware and by tests that drive the engines through synthetic clocks.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
