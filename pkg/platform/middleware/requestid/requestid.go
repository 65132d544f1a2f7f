// Package requestid assigns each request a correlation ID, honoring one
// supplied by the caller so upstream systems can trace calls end to end.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"aurum/pkg/requestcontext"
)

// Header is the request/response header carrying the correlation ID.
const Header = "X-Request-Id"

// Middleware injects a request ID into the context and echoes it back.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
