// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"time"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// WindowStore manages per-account transfer windows. Consume must apply the
// reset-check-add sequence atomically per account: implementations use a
// mutex (memory), an advisory-locked transaction (postgres) or optimistic
// CAS with retry (redis). A denied consume must leave the window untouched.
type WindowStore interface {
	// Consume attempts to admit amount into the account's window at now,
	// resetting the window first if it has expired. On admission the
	// window's transfer count increments.
	Consume(ctx context.Context, account domain.AccountID, amount domain.Amount, limits models.Limits, now time.Time) (*models.Decision, error)

	// Window returns the account's current window, or nil if the account
	// has never transferred.
	Window(ctx context.Context, account domain.AccountID) (*models.AccountWindow, error)

	// SetExempt flags an account to bypass rate limiting entirely.
	SetExempt(ctx context.Context, account domain.AccountID, exempt bool) error

	// IsExempt reports whether an account bypasses rate limiting.
	IsExempt(ctx context.Context, account domain.AccountID) (bool, error)
}

// AuditPublisher emits audit events for limit configuration changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
