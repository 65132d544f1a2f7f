// Package treasury specializes the timelock executor for single-recipient
// treasury transfers: operators request under a daily budget, a treasury
// caller executes once the window opens, funds move through the ledger.
package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"aurum/internal/timelock/budget"
	"aurum/internal/timelock/engine"
	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

// Payload is the transfer request body stored with the timelocked action.
type Payload struct {
	Recipient domain.AccountID `json:"recipient"`
	Amount    domain.Amount    `json:"amount"`
	Purpose   string           `json:"purpose"`
}

// TokenSource pays executed requests out of the treasury account on the
// ledger. The ledger service implements it.
type TokenSource interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error
}

// Service is the treasury timelock. Scheduling needs no approvals; the
// requesting operator passes the budget check instead.
type Service struct {
	engine  *engine.Engine
	budget  *budget.Service
	tokens  TokenSource
	account domain.AccountID
	logger  *slog.Logger
}

// New constructs the treasury specialization. account is the treasury's
// ledger account executed requests draw from.
func New(eng *engine.Engine, budgetSvc *budget.Service, tokens TokenSource, account domain.AccountID, logger *slog.Logger) (*Service, error) {
	if eng == nil {
		return nil, fmt.Errorf("timelock engine is required")
	}
	if budgetSvc == nil {
		return nil, fmt.Errorf("budget service is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if account.IsZero() {
		return nil, fmt.Errorf("treasury account is required")
	}
	return &Service{engine: eng, budget: budgetSvc, tokens: tokens, account: account, logger: logger}, nil
}

// Request schedules a transfer for the operator. The operator's budget is
// consumed at schedule time, so a request the budget rejects never reaches
// the timelock.
func (s *Service) Request(ctx context.Context, operator domain.OperatorID, recipient domain.AccountID, amount domain.Amount, purpose string) (*models.TimelockedAction, error) {
	if recipient.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}
	if amount.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	if err := s.budget.CheckAndConsume(ctx, operator, amount); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(Payload{Recipient: recipient, Amount: amount, Purpose: purpose})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
	}
	return s.engine.Schedule(ctx, domain.ActionID(uuid.NewString()), payload, nil)
}

// Execute moves the funds once the window is open. Treasury privilege is
// enforced at the transport layer. A failed transfer leaves the request
// executable within its window.
func (s *Service) Execute(ctx context.Context, id domain.ActionID) error {
	return s.engine.Execute(ctx, id, s.payOut)
}

// ExecuteEmergency moves the funds through the override path. Guardian
// privilege is enforced at the transport layer.
func (s *Service) ExecuteEmergency(ctx context.Context, id domain.ActionID, reason string) error {
	return s.engine.ExecuteEmergency(ctx, id, reason, s.payOut)
}

// RequestByID returns the stored action for inspection.
func (s *Service) RequestByID(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	return s.engine.Action(ctx, id)
}

// Policy returns the treasury timing configuration.
func (s *Service) Policy() models.Policy {
	return s.engine.Policy()
}

func (s *Service) payOut(ctx context.Context, action *models.TimelockedAction) error {
	var payload Payload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("decode request payload: %w", err)
	}
	if err := s.tokens.Transfer(ctx, s.account, payload.Recipient, payload.Amount); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "treasury payout transfer failed",
				"request_id", requestcontext.RequestID(ctx),
				"action_id", action.ID,
				"recipient", payload.Recipient,
				"amount", payload.Amount.String(),
				"error", err,
			)
		}
		return err
	}
	return nil
}
