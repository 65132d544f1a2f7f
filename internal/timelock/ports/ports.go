// Package ports defines the interfaces the timelock engine composes over.
package ports

import (
	"context"

	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// ActionStore owns timelocked actions keyed by action id. Implementations
// must apply each mutation atomically per action and signal facts with
// sentinel errors: ErrConflict when a create or mark precondition does not
// hold, ErrNotFound for an unknown id.
type ActionStore interface {
	// Create stores the action. ErrConflict if the id exists.
	Create(ctx context.Context, action *models.TimelockedAction) error

	// Get returns a copy of the action, or ErrNotFound.
	Get(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error)

	// MarkExecuted flips Executed from false to true. ErrConflict if the
	// action is already executed, so double execution loses the race here.
	MarkExecuted(ctx context.Context, id domain.ActionID) error

	// ClearExecuted reverts MarkExecuted after a failed payload so the
	// action stays executable within its window.
	ClearExecuted(ctx context.Context, id domain.ActionID) error
}

// AuditPublisher emits audit events for schedule and execution outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
