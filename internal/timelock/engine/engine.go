// Package engine implements the generic timelock state machine: schedule
// with an approval threshold, execute within a bounded window, or override
// through an emergency path gated by its own delay. Specializations supply
// the payload semantics; the engine owns the timing and the executed flag.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"aurum/internal/timelock/metrics"
	"aurum/internal/timelock/models"
	"aurum/internal/timelock/ports"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

// PayloadFunc performs an action's side effects. A returned error aborts the
// execution and the engine rolls the executed flag back.
type PayloadFunc func(ctx context.Context, action *models.TimelockedAction) error

// Engine is one specialization's timelock executor.
type Engine struct {
	name    string
	store   ports.ActionStore
	policy  models.Policy
	auditor ports.AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional engine collaborators.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(e *Engine) { e.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an engine. The name labels audit events and metrics for the
// specialization.
func New(name string, store ports.ActionStore, policy models.Policy, opts ...Option) (*Engine, error) {
	if name == "" {
		return nil, fmt.Errorf("engine name is required")
	}
	if store == nil {
		return nil, fmt.Errorf("action store is required")
	}
	if policy.Delay < 0 || policy.Window <= 0 || policy.EmergencyDelay < 0 || policy.MinApprovals < 0 {
		return nil, fmt.Errorf("timelock policy is inconsistent")
	}
	e := &Engine{name: name, store: store, policy: policy}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the engine's timing configuration.
func (e *Engine) Policy() models.Policy {
	return e.policy
}

// Schedule registers an action under a content-derived id. Approvals are
// counted distinct; identity verification is the caller's concern. The
// execution window is [now+delay, now+delay+window].
func (e *Engine) Schedule(ctx context.Context, id domain.ActionID, payload json.RawMessage, approvals []string) (*models.TimelockedAction, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "action id is required")
	}
	if got := distinct(approvals); got < e.policy.MinApprovals {
		e.metrics.IncrementRejected(e.name)
		return nil, models.ErrInsufficientApprovals(got, e.policy.MinApprovals)
	}

	now := requestcontext.Now(ctx)
	action := &models.TimelockedAction{
		ID:          id,
		Requester:   requestcontext.Caller(ctx).ID,
		RequestedAt: now,
		ScheduledAt: now.Add(e.policy.Delay),
		Deadline:    now.Add(e.policy.Delay + e.policy.Window),
		Payload:     payload,
	}
	if err := e.store.Create(ctx, action); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			e.metrics.IncrementRejected(e.name)
			existing, getErr := e.store.Get(ctx, id)
			if getErr == nil && existing.Executed {
				return nil, models.ErrAlreadyExecuted(id)
			}
			return nil, models.ErrAlreadyScheduled(id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store action")
	}

	e.metrics.IncrementScheduled(e.name)
	if e.logger != nil {
		e.logger.InfoContext(ctx, "action scheduled",
			"request_id", requestcontext.RequestID(ctx),
			"specialization", e.name,
			"action_id", id,
			"scheduled_at", action.ScheduledAt,
			"deadline", action.Deadline,
		)
	}
	e.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionScheduled,
		Subject:  id.String(),
		Decision: "allowed",
		Reason:   e.name,
	})
	return action, nil
}

// Execute runs the action's payload if the window is open and the action has
// not executed. The flag is set before the payload runs so a concurrent
// execution loses at the store; a failed payload rolls the flag back and the
// action stays executable within its window.
func (e *Engine) Execute(ctx context.Context, id domain.ActionID, run PayloadFunc) error {
	action, err := e.getAction(ctx, id)
	if err != nil {
		return err
	}
	if action.Executed {
		return e.rejectExecute(ctx, id, models.ErrAlreadyExecuted(id))
	}
	now := requestcontext.Now(ctx)
	if now.Before(action.ScheduledAt) {
		return e.rejectExecute(ctx, id, models.ErrTooEarly(id, action.ScheduledAt, action.Deadline))
	}
	if now.After(action.Deadline) {
		return e.rejectExecute(ctx, id, models.ErrTooLate(id, action.Deadline))
	}

	if err := e.runMarked(ctx, action, run); err != nil {
		return err
	}

	e.metrics.IncrementExecuted(e.name)
	if e.logger != nil {
		e.logger.InfoContext(ctx, "action executed",
			"request_id", requestcontext.RequestID(ctx),
			"specialization", e.name,
			"action_id", id,
		)
	}
	e.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionExecuted,
		Subject:  id.String(),
		Decision: "allowed",
		Reason:   e.name,
	})
	return nil
}

// ExecuteEmergency bypasses the execution window. It is still gated by the
// emergency delay from the request time, has no deadline, and is always
// audited with the caller's reason. Privilege checks live at the transport
// layer.
func (e *Engine) ExecuteEmergency(ctx context.Context, id domain.ActionID, reason string, run PayloadFunc) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "emergency reason is required")
	}
	action, err := e.getAction(ctx, id)
	if err != nil {
		return err
	}
	if action.Executed {
		return e.rejectExecute(ctx, id, models.ErrAlreadyExecuted(id))
	}
	now := requestcontext.Now(ctx)
	earliest := action.RequestedAt.Add(e.policy.EmergencyDelay)
	if now.Before(earliest) {
		return e.rejectExecute(ctx, id, models.ErrTooEarly(id, earliest, action.Deadline))
	}

	if err := e.runMarked(ctx, action, run); err != nil {
		return err
	}

	e.metrics.IncrementEmergency(e.name)
	if e.logger != nil {
		e.logger.WarnContext(ctx, "action executed through emergency path",
			"request_id", requestcontext.RequestID(ctx),
			"specialization", e.name,
			"action_id", id,
			"reason", reason,
		)
	}
	e.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionEmergencyExecuted,
		Subject:  id.String(),
		Decision: "allowed",
		Reason:   reason,
	})
	return nil
}

// Action returns the stored action for inspection.
func (e *Engine) Action(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	return e.getAction(ctx, id)
}

// runMarked claims the executed flag, runs the payload and rolls the flag
// back on failure.
func (e *Engine) runMarked(ctx context.Context, action *models.TimelockedAction, run PayloadFunc) error {
	if err := e.store.MarkExecuted(ctx, action.ID); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return e.rejectExecute(ctx, action.ID, models.ErrAlreadyExecuted(action.ID))
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark action executed")
	}
	if err := run(ctx, action); err != nil {
		if clearErr := e.store.ClearExecuted(ctx, action.ID); clearErr != nil && e.logger != nil {
			// The action is stuck executed with no side effects applied.
			e.logger.ErrorContext(ctx, "failed to roll back executed flag",
				"request_id", requestcontext.RequestID(ctx),
				"specialization", e.name,
				"action_id", action.ID,
				"error", clearErr,
			)
		}
		e.metrics.IncrementRejected(e.name)
		e.emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.ActionExecuteRejected,
			Subject:  action.ID.String(),
			Decision: "denied",
			Reason:   "payload failed",
		})
		return dErrors.Wrap(err, dErrors.CodeInternal, "action payload failed")
	}
	return nil
}

func (e *Engine) getAction(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "action id is required")
	}
	action, err := e.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.ErrNotScheduled(id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read action")
	}
	return action, nil
}

func (e *Engine) rejectExecute(ctx context.Context, id domain.ActionID, err *dErrors.Error) error {
	e.metrics.IncrementRejected(e.name)
	e.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionExecuteRejected,
		Subject:  id.String(),
		Decision: "denied",
		Reason:   err.Kind,
	})
	return err
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if e.auditor == nil {
		return
	}
	event.Actor = requestcontext.Caller(ctx).ID
	event.RequestID = requestcontext.RequestID(ctx)
	if err := e.auditor.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// distinct counts unique approval identities.
func distinct(approvals []string) int {
	seen := make(map[string]struct{}, len(approvals))
	for _, a := range approvals {
		if a == "" {
			continue
		}
		seen[a] = struct{}{}
	}
	return len(seen)
}
