// Package budget enforces per-operator treasury spending limits: an
// instantaneous per-request cap and a cumulative daily cap over a
// fixed-length day bucket that resets wholesale on first touch after expiry.
package budget

import (
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// OperatorBudget is one operator's spending accumulator. UsedToday only
// accumulates within [DayAnchor, DayAnchor+24h); the first consume after the
// boundary resets the bucket before the new amount is applied. Created lazily
// on first consume and never deleted.
type OperatorBudget struct {
	Operator  domain.OperatorID `json:"operator"`
	DayAnchor time.Time         `json:"day_anchor"`
	UsedToday domain.Amount     `json:"used_today"`
}

// Limits is the active per-operator spending configuration.
type Limits struct {
	PerTxLimit domain.Amount `json:"per_tx_limit"`
	DailyLimit domain.Amount `json:"daily_limit"`
}

// Decision is the outcome of a consume attempt against the daily bucket.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Remaining domain.Amount `json:"remaining"`
	ResetAt   time.Time     `json:"reset_at"`
}

// Caller-visible rejection kinds.
const (
	KindOperatorLimitExceeded = "operator_limit_exceeded"
	KindDailyLimitExceeded    = "daily_limit_exceeded"
)

// ErrOperatorLimit rejects a single request above the instantaneous cap.
func ErrOperatorLimit(operator domain.OperatorID, perTxLimit domain.Amount) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeForbidden, KindOperatorLimitExceeded, "request exceeds per-transaction operator limit").
		With("operator", operator.String()).
		With("per_tx_limit", perTxLimit.String())
}

// ErrDailyLimit rejects a request that would overflow the day's budget,
// carrying the remaining allowance and the time the bucket resets.
func ErrDailyLimit(operator domain.OperatorID, remaining domain.Amount, resetAt time.Time) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeForbidden, KindDailyLimitExceeded, "request exceeds daily operator budget").
		With("operator", operator.String()).
		With("remaining", remaining.String()).
		With("reset_at", resetAt.UTC().Format(time.RFC3339))
}
