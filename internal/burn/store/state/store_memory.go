// Package state provides the burn-state store implementations.
package state

import (
	"context"
	"sync"
	"time"

	"aurum/internal/burn/models"
	"aurum/pkg/domain"
)

// InMemoryStateStore holds the singleton burn state under a mutex.
type InMemoryStateStore struct {
	mu    sync.RWMutex
	state models.BurnState
}

// NewInMemory creates a store with zero burn state.
func NewInMemory() *InMemoryStateStore {
	return &InMemoryStateStore{}
}

// Get returns a copy of the current state.
func (s *InMemoryStateStore) Get(_ context.Context) (*models.BurnState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := s.state
	return &state, nil
}

// Apply evaluates the schedule and commits on admission. The first burn is
// exempt from the interval check; this bootstraps the schedule and is the
// only such exemption.
func (s *InMemoryStateStore) Apply(_ context.Context, amount domain.Amount, schedule models.Schedule, now time.Time) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.FirstBurnDone {
		nextAllowed := s.state.LastBurnTime.Add(schedule.Interval)
		if now.Before(nextAllowed) {
			return &models.Decision{
				Reason:        models.ReasonTooEarly,
				NextAllowedAt: nextAllowed,
				RemainingCap:  schedule.MaxBurnCap.Minus(s.state.TotalBurned),
				State:         s.state,
			}, nil
		}
	}

	burned := s.state.TotalBurned.Plus(amount)
	if burned.Cmp(schedule.MaxBurnCap) > 0 {
		return &models.Decision{
			Reason:       models.ReasonExceedsCap,
			RemainingCap: schedule.MaxBurnCap.Minus(s.state.TotalBurned),
			State:        s.state,
		}, nil
	}

	s.state.TotalBurned = burned
	s.state.LastBurnTime = now
	s.state.FirstBurnDone = true
	return &models.Decision{
		Admitted:     true,
		RemainingCap: schedule.MaxBurnCap.Minus(burned),
		State:        s.state,
	}, nil
}
