// Package models holds the timelock executor's action state and rejections.
package models

import (
	"encoding/json"
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// TimelockedAction is one scheduled action keyed by a content-derived id.
// Executable only while now is within [ScheduledAt, Deadline]; Executed flips
// exactly once and never reverts on committed state (the engine may clear it
// while rolling back a failed payload, which is the only writer of false).
type TimelockedAction struct {
	ID          domain.ActionID `json:"id"`
	Requester   string          `json:"requester"`
	RequestedAt time.Time       `json:"requested_at"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Deadline    time.Time       `json:"deadline"`
	Executed    bool            `json:"executed"`
	Payload     json.RawMessage `json:"payload"`
}

// Policy is one specialization's timing and approval configuration. Delay
// separates scheduling from the start of the execution window; Window bounds
// it; EmergencyDelay gates the override path from the request time.
type Policy struct {
	Delay          time.Duration `json:"delay"`
	Window         time.Duration `json:"window"`
	EmergencyDelay time.Duration `json:"emergency_delay"`
	MinApprovals   int           `json:"min_approvals"`
}

// Caller-visible rejection kinds.
const (
	KindNotScheduled          = "timelock_not_scheduled"
	KindAlreadyScheduled      = "timelock_already_scheduled"
	KindAlreadyExecuted       = "timelock_already_executed"
	KindTooEarly              = "timelock_too_early"
	KindTooLate               = "timelock_too_late"
	KindInsufficientApprovals = "timelock_insufficient_approvals"
)

// ErrNotScheduled rejects execution of an unknown action id.
func ErrNotScheduled(id domain.ActionID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeNotFound, KindNotScheduled, "action was never scheduled").
		With("action_id", id.String())
}

// ErrAlreadyScheduled rejects id reuse for a pending action.
func ErrAlreadyScheduled(id domain.ActionID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeConflict, KindAlreadyScheduled, "action is already scheduled").
		With("action_id", id.String())
}

// ErrAlreadyExecuted rejects a second execution or scheduling of a consumed
// id.
func ErrAlreadyExecuted(id domain.ActionID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeConflict, KindAlreadyExecuted, "action was already executed").
		With("action_id", id.String())
}

// ErrTooEarly rejects execution before the window opens, carrying the bounds
// the caller needs to retry.
func ErrTooEarly(id domain.ActionID, scheduledAt, deadline time.Time) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeTooEarly, KindTooEarly, "execution window has not opened").
		With("action_id", id.String()).
		With("scheduled_at", scheduledAt.UTC().Format(time.RFC3339)).
		With("deadline", deadline.UTC().Format(time.RFC3339))
}

// ErrTooLate rejects execution after the window closed. The action is
// expired; it can never execute through the normal path.
func ErrTooLate(id domain.ActionID, deadline time.Time) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeTooLate, KindTooLate, "execution window has closed").
		With("action_id", id.String()).
		With("deadline", deadline.UTC().Format(time.RFC3339))
}

// ErrInsufficientApprovals rejects scheduling below the approval threshold.
func ErrInsufficientApprovals(got, required int) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeForbidden, KindInsufficientApprovals, "not enough distinct approvals").
		With("approvals", got).
		With("required", required)
}
