// Package requesttime pins the current time at the start of each request so
// every time-gated decision inside one request sees the same "now". The
// engines read it via requestcontext.Now(ctx) and never sample the wall clock
// themselves.
package requesttime

import (
	"net/http"
	"time"

	"aurum/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
