// Package tracing opens an OpenTelemetry span per request so engine latency
// shows up in whatever trace backend the deployment wires up.
package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aurum/pkg/requestcontext"
)

const tracerName = "aurum/http"

// Middleware wraps each request in a server span tagged with method, path and
// the request correlation ID.
func Middleware(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("request.id", requestcontext.RequestID(r.Context())),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
