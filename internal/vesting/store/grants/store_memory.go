// Package grants provides the vesting grant store implementations.
package grants

import (
	"context"
	"sync"

	"aurum/internal/vesting/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// InMemoryGrantStore holds grants in a map under a mutex.
type InMemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[domain.BeneficiaryID]*models.VestingGrant
}

// NewInMemory creates an empty grant store.
func NewInMemory() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[domain.BeneficiaryID]*models.VestingGrant)}
}

// Register creates the grant, rejecting duplicates.
func (s *InMemoryGrantStore) Register(_ context.Context, grant *models.VestingGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.Beneficiary]; ok {
		return sentinel.ErrConflict
	}
	stored := *grant
	s.grants[grant.Beneficiary] = &stored
	return nil
}

// Get returns a copy of the grant.
func (s *InMemoryGrantStore) Get(_ context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[beneficiary]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *grant
	return &copied, nil
}

// CommitInitialClaim records the one-time initial-unlock claim.
func (s *InMemoryGrantStore) CommitInitialClaim(_ context.Context, beneficiary domain.BeneficiaryID, amount domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[beneficiary]
	if !ok {
		return sentinel.ErrNotFound
	}
	if grant.InitialClaimed {
		return sentinel.ErrConflict
	}
	grant.InitialClaimed = true
	grant.InitialUnlockClaimed = amount
	grant.TotalClaimed = grant.TotalClaimed.Plus(amount)
	return nil
}

// CommitVestedClaim adds amount to TotalClaimed under a compare-and-swap on
// the expected claimed total.
func (s *InMemoryGrantStore) CommitVestedClaim(_ context.Context, beneficiary domain.BeneficiaryID, amount, expectedClaimed domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[beneficiary]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !grant.TotalClaimed.Equal(expectedClaimed) {
		return sentinel.ErrConflict
	}
	grant.TotalClaimed = grant.TotalClaimed.Plus(amount)
	return nil
}
