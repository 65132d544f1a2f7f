package budget

import (
	"context"
	"sync"
	"time"

	"aurum/pkg/domain"
)

// dayLength is the fixed daily bucket length.
const dayLength = 24 * time.Hour

// InMemoryBudgetStore implements BudgetStore over a map guarded by one
// mutex, which serializes all consume decisions.
type InMemoryBudgetStore struct {
	mu      sync.RWMutex
	budgets map[domain.OperatorID]*OperatorBudget
}

// NewInMemoryStore creates an empty budget store.
func NewInMemoryStore() *InMemoryBudgetStore {
	return &InMemoryBudgetStore{budgets: make(map[domain.OperatorID]*OperatorBudget)}
}

// Consume applies the fixed-bucket algorithm: reset on first touch after the
// day boundary, then admit iff the day's spend stays within the limit. A
// denial mutates nothing.
func (s *InMemoryBudgetStore) Consume(_ context.Context, operator domain.OperatorID, amount, dailyLimit domain.Amount, now time.Time) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[operator]
	if !ok {
		b = &OperatorBudget{Operator: operator, DayAnchor: now}
		s.budgets[operator] = b
	}

	if !now.Before(b.DayAnchor.Add(dayLength)) {
		b.DayAnchor = now
		b.UsedToday = domain.Amount{}
	}

	resetAt := b.DayAnchor.Add(dayLength)
	used := b.UsedToday.Plus(amount)
	if used.Cmp(dailyLimit) > 0 {
		return &Decision{
			Allowed:   false,
			Remaining: dailyLimit.Minus(b.UsedToday),
			ResetAt:   resetAt,
		}, nil
	}

	b.UsedToday = used
	return &Decision{
		Allowed:   true,
		Remaining: dailyLimit.Minus(used),
		ResetAt:   resetAt,
	}, nil
}

// Budget returns a copy of the operator's bucket, nil if never seen.
func (s *InMemoryBudgetStore) Budget(_ context.Context, operator domain.OperatorID) (*OperatorBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[operator]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}
