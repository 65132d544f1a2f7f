// Package models holds the rate limiter's state and decision types.
package models

import (
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// AccountWindow is the per-account transfer window. The window is a
// fixed-length bucket, not a rolling one: AmountInWindow only accumulates
// within [WindowStart, WindowStart+period); the first touch after expiry
// resets the bucket wholesale before the new amount is applied. Windows are
// created lazily on first transfer and never deleted.
type AccountWindow struct {
	Account        domain.AccountID `json:"account"`
	WindowStart    time.Time        `json:"window_start"`
	AmountInWindow domain.Amount    `json:"amount_in_window"`
	TransferCount  uint64           `json:"transfer_count"`
	Exempt         bool             `json:"exempt"`
}

// Limits is the active global transfer limit configuration.
type Limits struct {
	Limit  domain.Amount `json:"limit"`
	Period time.Duration `json:"period"`
}

// Decision is the outcome of a consume attempt. Remaining and ResetAt give a
// rejected caller exactly what it needs to retry.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Remaining domain.Amount `json:"remaining"`
	ResetAt   time.Time     `json:"reset_at"`
	Exempt    bool          `json:"exempt"`
}

// KindRateLimitExceeded is the caller-visible kind for a window overflow.
const KindRateLimitExceeded = "rate_limit_exceeded"

// ErrRateLimitExceeded builds the rejection carrying the remaining allowance
// and the time the window resets.
func ErrRateLimitExceeded(account domain.AccountID, remaining domain.Amount, resetAt time.Time) error {
	return dErrors.NewKind(dErrors.CodeRateLimited, KindRateLimitExceeded, "transfer exceeds rate limit window").
		With("account", account.String()).
		With("remaining", remaining.String()).
		With("reset_at", resetAt.UTC().Format(time.RFC3339))
}
