package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

// Service enforces the per-operator spending limits. Limits are mutable at
// runtime by admins, shared across operators.
type Service struct {
	store   BudgetStore
	auditor AuditPublisher
	logger  *slog.Logger

	mu     sync.RWMutex
	limits Limits
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// NewService constructs the budget enforcer with its initial limits.
func NewService(store BudgetStore, limits Limits, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("budget store is required")
	}
	if limits.PerTxLimit.IsZero() || limits.DailyLimit.IsZero() {
		return nil, fmt.Errorf("limits must be positive")
	}
	svc := &Service{store: store, limits: limits}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndConsume admits amount against the operator's per-request cap and
// day bucket at the request time. The per-request cap is checked first and
// touches no state; a daily denial mutates nothing either.
func (s *Service) CheckAndConsume(ctx context.Context, operator domain.OperatorID, amount domain.Amount) error {
	if operator.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "operator is required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	limits := s.Limits()
	if amount.Cmp(limits.PerTxLimit) > 0 {
		return s.reject(ctx, operator, amount, ErrOperatorLimit(operator, limits.PerTxLimit))
	}

	now := requestcontext.Now(ctx)
	decision, err := s.store.Consume(ctx, operator, amount, limits.DailyLimit, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume budget")
	}
	if !decision.Allowed {
		return s.reject(ctx, operator, amount, ErrDailyLimit(operator, decision.Remaining, decision.ResetAt))
	}
	return nil
}

// Budget exposes the operator's current bucket for inspection.
func (s *Service) Budget(ctx context.Context, operator domain.OperatorID) (*OperatorBudget, error) {
	if operator.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "operator is required")
	}
	b, err := s.store.Budget(ctx, operator)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read budget")
	}
	if b == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "operator has no budget usage")
	}
	return b, nil
}

// SetLimits replaces the active spending limits. Existing buckets keep their
// anchors; the new limits apply from the next consume.
func (s *Service) SetLimits(ctx context.Context, limits Limits) error {
	if limits.PerTxLimit.IsZero() || limits.DailyLimit.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "limits must be positive")
	}
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionBudgetChanged,
		Amount:   limits.DailyLimit.String(),
		Reason:   fmt.Sprintf("per_tx=%s", limits.PerTxLimit.String()),
	})
	return nil
}

// Limits returns the active spending limits.
func (s *Service) Limits() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

func (s *Service) reject(ctx context.Context, operator domain.OperatorID, amount domain.Amount, err *dErrors.Error) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "treasury request denied by operator budget",
			"request_id", requestcontext.RequestID(ctx),
			"operator", operator,
			"amount", amount.String(),
			"kind", err.Kind,
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionBudgetRejected,
		Subject:  operator.String(),
		Amount:   amount.String(),
		Decision: "denied",
		Reason:   err.Kind,
	})
	return err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Actor = requestcontext.Caller(ctx).ID
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
