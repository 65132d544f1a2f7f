// Package ports defines the interfaces the ledger service composes over.
package ports

import (
	"context"

	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// BalanceStore owns account balances and total supply. Implementations must
// apply each mutation atomically per account pair and return
// sentinel.ErrInsufficientFunds without partial mutation when a balance
// cannot cover a movement.
type BalanceStore interface {
	// Balance returns the balance of an account (zero if never seen).
	Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error)

	// TotalSupply returns the current total supply.
	TotalSupply(ctx context.Context) (domain.Amount, error)

	// Mint credits an account and grows total supply. Used for seeding.
	Mint(ctx context.Context, to domain.AccountID, amount domain.Amount) error

	// Transfer moves amount between accounts atomically.
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error

	// Burn debits an account and shrinks total supply atomically.
	Burn(ctx context.Context, from domain.AccountID, amount domain.Amount) error
}

// TransferGate admits or rejects an outbound transfer before any balance
// mutation. The rate limiter implements it.
type TransferGate interface {
	CheckAndConsume(ctx context.Context, account domain.AccountID, amount domain.Amount) error
}

// AuditPublisher emits audit events for ledger movements.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
