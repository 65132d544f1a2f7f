// Package service implements the burn scheduler: interval-gated, cumulative-
// cap-bounded supply reduction. Exactly one burn may succeed per interval;
// rejected burns are not queued.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"aurum/internal/burn/metrics"
	"aurum/internal/burn/models"
	"aurum/internal/burn/ports"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

// Service coordinates schedule admission with supply destruction.
type Service struct {
	store    ports.StateStore
	burner   ports.SupplyBurner
	schedule models.Schedule
	auditor  ports.AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the burn scheduler.
func New(store ports.StateStore, burner ports.SupplyBurner, schedule models.Schedule, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("burn state store is required")
	}
	if burner == nil {
		return nil, fmt.Errorf("supply burner is required")
	}
	if schedule.MaxBurnCap.IsZero() || schedule.Interval <= 0 {
		return nil, fmt.Errorf("burn schedule must be positive")
	}
	svc := &Service{store: store, burner: burner, schedule: schedule}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TryBurn admits a burn against the schedule at the request time and, on
// admission, destroys the amount from the caller's balance. The balance is
// prechecked before schedule state advances so an uncovered burn rejects
// without consuming the interval.
func (s *Service) TryBurn(ctx context.Context, from domain.AccountID, amount domain.Amount) error {
	if amount.IsZero() {
		return models.ErrZeroAmount()
	}
	if from.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "burner account is required")
	}

	balance, err := s.burner.Balance(ctx, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read burner balance")
	}
	if balance.Cmp(amount) < 0 {
		return dErrors.NewKind(dErrors.CodeConflict, "insufficient_funds", "burner balance cannot cover burn").
			With("balance", balance.String())
	}

	now := requestcontext.Now(ctx)
	decision, err := s.store.Apply(ctx, amount, s.schedule, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply burn schedule")
	}
	if !decision.Admitted {
		s.metrics.IncrementRejected()
		s.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionBurnRejected,
			Actor:    from.String(),
			Amount:   amount.String(),
			Decision: "denied",
			Reason:   string(decision.Reason),
		})
		switch decision.Reason {
		case models.ReasonTooEarly:
			return models.ErrTooEarly(decision.NextAllowedAt)
		default:
			return models.ErrExceedsCap(decision.RemainingCap)
		}
	}

	if err := s.burner.Burn(ctx, from, amount); err != nil {
		// Schedule state has advanced; surface this loudly because supply
		// and schedule now disagree until an operator reconciles them.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "admitted burn failed to destroy supply",
				"request_id", requestcontext.RequestID(ctx),
				"account", from,
				"amount", amount.String(),
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to destroy supply")
	}

	s.metrics.IncrementExecuted()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "supply burned",
			"request_id", requestcontext.RequestID(ctx),
			"account", from,
			"amount", amount.String(),
			"total_burned", decision.State.TotalBurned.String(),
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionBurnExecuted,
		Actor:    from.String(),
		Amount:   amount.String(),
		Decision: "allowed",
	})
	return nil
}

// State returns the current burn state for inspection.
func (s *Service) State(ctx context.Context) (*models.BurnState, error) {
	state, err := s.store.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read burn state")
	}
	return state, nil
}

// Schedule returns the active burn policy.
func (s *Service) Schedule() models.Schedule {
	return s.schedule
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
