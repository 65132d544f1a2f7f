// Package actions provides the timelocked action store implementations.
package actions

import (
	"context"
	"sync"

	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// InMemoryActionStore holds actions in a map under a mutex.
type InMemoryActionStore struct {
	mu      sync.RWMutex
	actions map[domain.ActionID]*models.TimelockedAction
}

// NewInMemory creates an empty action store.
func NewInMemory() *InMemoryActionStore {
	return &InMemoryActionStore{actions: make(map[domain.ActionID]*models.TimelockedAction)}
}

// Create stores the action, rejecting id reuse.
func (s *InMemoryActionStore) Create(_ context.Context, action *models.TimelockedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actions[action.ID]; ok {
		return sentinel.ErrConflict
	}
	stored := *action
	s.actions[action.ID] = &stored
	return nil
}

// Get returns a copy of the action.
func (s *InMemoryActionStore) Get(_ context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	action, ok := s.actions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *action
	return &copied, nil
}

// MarkExecuted flips the executed flag, losing to a concurrent executor.
func (s *InMemoryActionStore) MarkExecuted(_ context.Context, id domain.ActionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.actions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if action.Executed {
		return sentinel.ErrConflict
	}
	action.Executed = true
	return nil
}

// ClearExecuted reverts the flag after a failed payload.
func (s *InMemoryActionStore) ClearExecuted(_ context.Context, id domain.ActionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	action, ok := s.actions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	action.Executed = false
	return nil
}
