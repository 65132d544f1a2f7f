// Package service implements the balance ledger operations. The ledger is a
// thin collaborator: every movement is admitted by the relevant engine first
// and the store mutation is the last step, so a rejection anywhere leaves no
// partial state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"aurum/internal/ledger/ports"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

// KindInsufficientFunds is the caller-visible kind for a balance shortfall.
const KindInsufficientFunds = "insufficient_funds"

// Service coordinates transfers through the rate-limit gate.
type Service struct {
	store   ports.BalanceStore
	gate    ports.TransferGate
	auditor ports.AuditPublisher
	logger  *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher attaches an audit sink.
func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// New constructs the ledger service. The gate is required: no transfer may
// bypass rate limiting.
func New(store ports.BalanceStore, gate ports.TransferGate, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("balance store is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("transfer gate is required")
	}
	svc := &Service{store: store, gate: gate}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Transfer moves amount from one account to another, subject to the sender's
// rate-limit window. Ordering matters for side-effect freedom: the balance is
// prechecked before the gate consumes window budget, so a doomed transfer
// rejects without burning allowance.
func (s *Service) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error {
	if from.IsZero() || to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "sender and recipient are required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "transfer amount must be positive")
	}

	balance, err := s.store.Balance(ctx, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	if balance.Cmp(amount) < 0 {
		return dErrors.NewKind(dErrors.CodeConflict, KindInsufficientFunds, "balance cannot cover transfer").
			With("balance", balance.String()).
			With("requested", amount.String())
	}

	if err := s.gate.CheckAndConsume(ctx, from, amount); err != nil {
		s.emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   audit.ActionTransferRejected,
			Actor:    from.String(),
			Subject:  to.String(),
			Amount:   amount.String(),
			Decision: "denied",
			Reason:   dErrors.KindOf(err),
		})
		return err
	}

	if err := s.store.Transfer(ctx, from, to, amount); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientFunds) {
			// Balance moved between precheck and commit; surface the same
			// rejection the precheck would have produced.
			return dErrors.NewKind(dErrors.CodeConflict, KindInsufficientFunds, "balance cannot cover transfer").
				With("requested", amount.String())
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply transfer")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "transfer applied",
			"request_id", requestcontext.RequestID(ctx),
			"from", from,
			"to", to,
			"amount", amount.String(),
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.ActionTransferAdmitted,
		Actor:    from.String(),
		Subject:  to.String(),
		Amount:   amount.String(),
		Decision: "allowed",
	})
	return nil
}

// Balance returns an account's balance.
func (s *Service) Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error) {
	if account.IsZero() {
		return domain.Amount{}, dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	balance, err := s.store.Balance(ctx, account)
	if err != nil {
		return domain.Amount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return balance, nil
}

// TotalSupply returns the current total supply.
func (s *Service) TotalSupply(ctx context.Context) (domain.Amount, error) {
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return domain.Amount{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read supply")
	}
	return supply, nil
}

// Mint seeds an account with newly issued supply. Admin-only at the transport
// layer; deployments seed the vesting pool and treasury accounts this way.
func (s *Service) Mint(ctx context.Context, to domain.AccountID, amount domain.Amount) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}
	if amount.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "mint amount must be positive")
	}
	if err := s.store.Mint(ctx, to, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint")
	}
	return nil
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
