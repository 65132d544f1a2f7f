// Package ports defines shared interfaces for the burn module.
package ports

import (
	"context"
	"time"

	"aurum/internal/burn/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// StateStore owns the singleton burn state. Apply must evaluate the schedule
// and commit the bookkeeping atomically; a denial leaves the state untouched.
type StateStore interface {
	// Get returns the current burn state (zero state before any burn).
	Get(ctx context.Context) (*models.BurnState, error)

	// Apply attempts to admit a burn of amount at now under the schedule.
	Apply(ctx context.Context, amount domain.Amount, schedule models.Schedule, now time.Time) (*models.Decision, error)
}

// SupplyBurner destroys admitted amounts from the burner's balance. The
// ledger implements it.
type SupplyBurner interface {
	Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error)
	Burn(ctx context.Context, from domain.AccountID, amount domain.Amount) error
}

// AuditPublisher emits audit events for burns.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
