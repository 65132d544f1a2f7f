// Package window provides the account-window store implementations.
package window

import (
	"context"
	"sync"
	"time"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
)

// InMemoryWindowStore implements WindowStore over a map guarded by one mutex,
// which serializes all consume decisions.
type InMemoryWindowStore struct {
	mu      sync.RWMutex
	windows map[domain.AccountID]*models.AccountWindow
	exempt  map[domain.AccountID]bool
}

// NewInMemory creates an empty window store.
func NewInMemory() *InMemoryWindowStore {
	return &InMemoryWindowStore{
		windows: make(map[domain.AccountID]*models.AccountWindow),
		exempt:  make(map[domain.AccountID]bool),
	}
}

// Consume applies the fixed-bucket algorithm: reset on first touch after
// expiry, then admit iff the accumulated amount stays within the limit.
// A denial mutates nothing.
func (s *InMemoryWindowStore) Consume(_ context.Context, account domain.AccountID, amount domain.Amount, limits models.Limits, now time.Time) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[account]
	if !ok {
		w = &models.AccountWindow{Account: account, WindowStart: now}
		s.windows[account] = w
	}

	// Boundary semantics: a transfer exactly at WindowStart+period lands in
	// a fresh window.
	if !now.Before(w.WindowStart.Add(limits.Period)) {
		w.WindowStart = now
		w.AmountInWindow = domain.Amount{}
	}

	resetAt := w.WindowStart.Add(limits.Period)
	consumed := w.AmountInWindow.Plus(amount)
	if consumed.Cmp(limits.Limit) > 0 {
		return &models.Decision{
			Allowed:   false,
			Remaining: limits.Limit.Minus(w.AmountInWindow),
			ResetAt:   resetAt,
		}, nil
	}

	w.AmountInWindow = consumed
	w.TransferCount++
	return &models.Decision{
		Allowed:   true,
		Remaining: limits.Limit.Minus(consumed),
		ResetAt:   resetAt,
	}, nil
}

// Window returns a copy of the account's window, nil if never seen.
func (s *InMemoryWindowStore) Window(_ context.Context, account domain.AccountID) (*models.AccountWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[account]
	if !ok {
		return nil, nil
	}
	copied := *w
	copied.Exempt = s.exempt[account]
	return &copied, nil
}

// SetExempt flags an account to bypass rate limiting.
func (s *InMemoryWindowStore) SetExempt(_ context.Context, account domain.AccountID, exempt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exempt {
		s.exempt[account] = true
	} else {
		delete(s.exempt, account)
	}
	return nil
}

// IsExempt reports whether an account bypasses rate limiting.
func (s *InMemoryWindowStore) IsExempt(_ context.Context, account domain.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exempt[account], nil
}
