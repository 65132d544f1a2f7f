// Package testutil provides test helpers for request-scoped context values
// and backing-store containers.
package testutil

import (
	"context"
	"net/http"
	"time"

	"aurum/pkg/domain"
	"aurum/pkg/requestcontext"
)

// ContextAt returns a context whose request time is pinned to now, the way
// the request-time middleware does for real requests. Engines read time only
// from the context, so tests drive the clock through this.
func ContextAt(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}

// ContextAtAs pins both the request time and the caller.
func ContextAtAs(now time.Time, caller domain.Caller) context.Context {
	return requestcontext.WithCaller(ContextAt(now), caller)
}

// WithCaller attaches an authenticated caller to the request context,
// simulating what the auth middleware does.
func WithCaller(req *http.Request, id string, roles ...domain.Role) *http.Request {
	caller := domain.Caller{ID: id, Roles: roles}
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithTime pins the request time on the request context, simulating the
// request-time middleware.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
