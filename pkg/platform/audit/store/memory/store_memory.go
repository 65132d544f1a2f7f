// Package memory provides the in-memory audit sink used in tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"

	"aurum/pkg/platform/audit"
)

// Store keeps events in an append-only slice guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

// New creates an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

// Append records an event.
func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByActor returns all events recorded for an actor, in append order.
func (s *Store) ListByActor(_ context.Context, actor string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every recorded event. Test helper.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
