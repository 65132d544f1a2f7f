// Package worker drains buffered audit events into a sink in the background
// so hot paths only pay for a channel send.
package worker

import (
	"context"
	"log/slog"

	"aurum/pkg/platform/audit"
)

// Sink receives drained events. Both the store-backed publisher and the Kafka
// publisher satisfy it.
type Sink interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Worker consumes audit events from a channel and forwards them to the sink.
type Worker struct {
	sink   Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// New builds a worker over an inbox channel.
func New(sink Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until the context is cancelled. Sink failures are
// logged; one bad event must not stop the stream.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil && w.logger != nil {
				w.logger.Error("failed to persist audit event",
					"action", event.Action,
					"event_id", event.ID,
					"error", err,
				)
			}
		}
	}
}

// Buffered wraps a channel as a non-blocking Sink for producers. Events are
// dropped (and counted by the caller's logger) when the buffer is full rather
// than stalling an engine operation.
type Buffered struct {
	inbox  chan<- audit.Event
	logger *slog.Logger
}

// NewBuffered builds the producer side of the worker's inbox.
func NewBuffered(inbox chan<- audit.Event, logger *slog.Logger) *Buffered {
	return &Buffered{inbox: inbox, logger: logger}
}

// Emit enqueues the event without blocking.
func (b *Buffered) Emit(_ context.Context, event audit.Event) error {
	select {
	case b.inbox <- event:
	default:
		if b.logger != nil {
			b.logger.Warn("audit buffer full, dropping event", "action", event.Action)
		}
	}
	return nil
}
