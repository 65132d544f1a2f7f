package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor string) ([]Event, error)
}

// Publisher emits audit events. Engines depend on this interface through
// their own ports packages so tests can swap sinks.
type Publisher struct {
	store Store
}

// NewPublisher builds a store-backed publisher.
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit assigns the event an id and timestamp if missing and appends it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// List returns events recorded for an actor.
func (p *Publisher) List(ctx context.Context, actor string) ([]Event, error) {
	return p.store.ListByActor(ctx, actor)
}
