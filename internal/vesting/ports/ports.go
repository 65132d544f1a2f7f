// Package ports defines the interfaces the vesting service composes over.
package ports

import (
	"context"

	"aurum/internal/vesting/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// GrantStore owns vesting grants keyed by beneficiary. Implementations must
// apply each mutation atomically per beneficiary and signal facts with
// sentinel errors: ErrConflict when a registration or claim precondition does
// not hold, ErrNotFound when the beneficiary has no grant.
type GrantStore interface {
	// Register creates the grant. ErrConflict if the beneficiary already
	// has one.
	Register(ctx context.Context, grant *models.VestingGrant) error

	// Get returns a copy of the grant, or ErrNotFound.
	Get(ctx context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error)

	// CommitInitialClaim records the one-time initial-unlock claim: sets the
	// claimed flag, records the unlock amount and adds it to TotalClaimed.
	// ErrConflict if the initial unlock was already claimed.
	CommitInitialClaim(ctx context.Context, beneficiary domain.BeneficiaryID, amount domain.Amount) error

	// CommitVestedClaim adds amount to TotalClaimed if TotalClaimed still
	// equals expectedClaimed, so a concurrent claim on the same grant cannot
	// be double-counted. ErrConflict on mismatch.
	CommitVestedClaim(ctx context.Context, beneficiary domain.BeneficiaryID, amount, expectedClaimed domain.Amount) error
}

// TokenSource pays claims out of the vesting pool account on the ledger.
// The ledger service implements it.
type TokenSource interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error
}

// AuditPublisher emits audit events for grant registrations and claims.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
