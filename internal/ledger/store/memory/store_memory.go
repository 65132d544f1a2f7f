// Package memory implements the balance store over an in-memory map.
package memory

import (
	"context"
	"sync"

	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// Store keeps balances and total supply under one mutex so every movement is
// applied atomically and in a total order.
type Store struct {
	mu       sync.RWMutex
	balances map[domain.AccountID]domain.Amount
	supply   domain.Amount
}

// New creates an empty balance store.
func New() *Store {
	return &Store{balances: make(map[domain.AccountID]domain.Amount)}
}

// Balance returns the balance of an account, zero if never seen.
func (s *Store) Balance(_ context.Context, account domain.AccountID) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// TotalSupply returns the current total supply.
func (s *Store) TotalSupply(_ context.Context) (domain.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, nil
}

// Mint credits an account and grows total supply.
func (s *Store) Mint(_ context.Context, to domain.AccountID, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[to] = s.balances[to].Plus(amount)
	s.supply = s.supply.Plus(amount)
	return nil
}

// Transfer moves amount between accounts, all-or-nothing.
func (s *Store) Transfer(_ context.Context, from, to domain.AccountID, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[from].Cmp(amount) < 0 {
		return sentinel.ErrInsufficientFunds
	}
	s.balances[from] = s.balances[from].Minus(amount)
	s.balances[to] = s.balances[to].Plus(amount)
	return nil
}

// Burn debits an account and shrinks total supply.
func (s *Store) Burn(_ context.Context, from domain.AccountID, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[from].Cmp(amount) < 0 {
		return sentinel.ErrInsufficientFunds
	}
	s.balances[from] = s.balances[from].Minus(amount)
	s.supply = s.supply.Minus(amount)
	return nil
}
