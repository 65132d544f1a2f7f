// Package models holds the burn scheduler's state and error kinds.
package models

import (
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// BurnState is the singleton burn schedule. TotalBurned never decreases and
// never exceeds the cap; LastBurnTime only advances. FirstBurnDone records
// the one-time interval exemption that bootstraps the schedule.
type BurnState struct {
	TotalBurned   domain.Amount `json:"total_burned"`
	LastBurnTime  time.Time     `json:"last_burn_time"`
	FirstBurnDone bool          `json:"first_burn_done"`
}

// Schedule is the burn policy: a cumulative cap and a minimum interval
// between burns.
type Schedule struct {
	MaxBurnCap domain.Amount `json:"max_burn_cap"`
	Interval   time.Duration `json:"interval"`
}

// Reason classifies why a burn was not admitted.
type Reason string

const (
	ReasonTooEarly   Reason = "too_early"
	ReasonExceedsCap Reason = "exceeds_cap"
)

// Decision is the outcome of a burn attempt against the schedule.
type Decision struct {
	Admitted      bool
	Reason        Reason
	NextAllowedAt time.Time
	RemainingCap  domain.Amount
	State         BurnState
}

// Caller-visible error kinds.
const (
	KindBurnZeroAmount = "burn_zero_amount"
	KindBurnTooEarly   = "burn_too_early"
	KindBurnExceedsCap = "burn_exceeds_cap"
)

// ErrZeroAmount rejects a zero-amount burn.
func ErrZeroAmount() error {
	return dErrors.NewKind(dErrors.CodeInvalidInput, KindBurnZeroAmount, "burn amount must be positive")
}

// ErrTooEarly rejects a burn inside the interval, carrying the next allowed
// time so the caller can retry correctly.
func ErrTooEarly(nextAllowedAt time.Time) error {
	return dErrors.NewKind(dErrors.CodeTooEarly, KindBurnTooEarly, "burn interval has not elapsed").
		With("next_allowed_at", nextAllowedAt.UTC().Format(time.RFC3339))
}

// ErrExceedsCap rejects a burn that would cross the cumulative cap.
func ErrExceedsCap(remaining domain.Amount) error {
	return dErrors.NewKind(dErrors.CodeConflict, KindBurnExceedsCap, "burn would exceed the cumulative cap").
		With("remaining_cap", remaining.String())
}
