// Package service implements the transfer rate limiter: a per-account
// fixed-length window that admits outbound transfers while cumulative volume
// stays within the configured limit.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aurum/internal/ratelimit/metrics"
	"aurum/internal/ratelimit/models"
	"aurum/internal/ratelimit/ports"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

// Service enforces the per-account transfer window. Limits are mutable at
// runtime by admins; the guard keeps reads consistent with concurrent updates.
type Service struct {
	store   ports.WindowStore
	auditor ports.AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	limits models.Limits
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

// New constructs the rate limiter with its initial limits.
func New(store ports.WindowStore, limits models.Limits, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if limits.Limit.IsZero() || limits.Period <= 0 {
		return nil, fmt.Errorf("limits must be positive")
	}
	svc := &Service{store: store, limits: limits}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckAndConsume admits amount into the account's window at the request
// time, or rejects with the remaining allowance and reset time. Exempt
// accounts bypass the window entirely. A rejection mutates nothing.
func (s *Service) CheckAndConsume(ctx context.Context, account domain.AccountID, amount domain.Amount) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}

	exempt, err := s.store.IsExempt(ctx, account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read exemption")
	}
	if exempt {
		s.metrics.IncrementExemptBypass()
		return nil
	}

	now := requestcontext.Now(ctx)
	decision, err := s.store.Consume(ctx, account, amount, s.Limits(), now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume window")
	}
	if !decision.Allowed {
		s.metrics.IncrementDenied()
		if s.logger != nil {
			s.logger.InfoContext(ctx, "transfer denied by rate limit",
				"request_id", requestcontext.RequestID(ctx),
				"account", account,
				"amount", amount.String(),
				"remaining", decision.Remaining.String(),
				"reset_at", decision.ResetAt,
			)
		}
		return models.ErrRateLimitExceeded(account, decision.Remaining, decision.ResetAt)
	}
	s.metrics.IncrementAdmitted()
	return nil
}

// Window exposes the account's current window for inspection; the transfer
// counter feeds external suspicious-activity heuristics.
func (s *Service) Window(ctx context.Context, account domain.AccountID) (*models.AccountWindow, error) {
	if account.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	w, err := s.store.Window(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read window")
	}
	if w == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "account has no transfer window")
	}
	return w, nil
}

// SetExempt flags an account to bypass rate limiting. Admin-only at the
// transport layer.
func (s *Service) SetExempt(ctx context.Context, account domain.AccountID, exempt bool) error {
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if err := s.store.SetExempt(ctx, account, exempt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set exemption")
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionExemptionChanged,
		Subject:  account.String(),
		Decision: fmt.Sprintf("exempt=%t", exempt),
	})
	return nil
}

// SetLimits replaces the active window limits. Existing windows keep their
// start times; the new limit applies from the next consume.
func (s *Service) SetLimits(ctx context.Context, limits models.Limits) error {
	if limits.Limit.IsZero() || limits.Period <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "limit and period must be positive")
	}
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	s.emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.ActionRateLimitChanged,
		Amount:   limits.Limit.String(),
		Reason:   fmt.Sprintf("period=%s", limits.Period),
	})
	return nil
}

// Limits returns the active window limits.
func (s *Service) Limits() models.Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// Period returns the active window period.
func (s *Service) Period() time.Duration {
	return s.Limits().Period
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
