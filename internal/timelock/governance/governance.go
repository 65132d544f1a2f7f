// Package governance specializes the timelock executor for multi-target
// proposals: an ordered list of calls executed all-or-nothing once the
// window opens, scheduled under a fixed minimum signer count.
package governance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"aurum/internal/timelock/engine"
	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/requestcontext"
)

// Call is one target invocation in a proposal. Data is the opaque call input
// for the target; dispatch semantics belong to the CallDispatcher.
type Call struct {
	Target string        `json:"target"`
	Value  domain.Amount `json:"value"`
	Data   []byte        `json:"data,omitempty"`
}

// Payload is the proposal body stored with the timelocked action.
type Payload struct {
	Calls []Call `json:"calls"`
}

// CallDispatcher performs a proposal's calls. The surrounding system owns
// what a target means; a returned error aborts the proposal's execution.
type CallDispatcher interface {
	Dispatch(ctx context.Context, call Call) error
}

// Service is the governance timelock.
type Service struct {
	engine     *engine.Engine
	dispatcher CallDispatcher
	logger     *slog.Logger
}

// New constructs the governance specialization.
func New(eng *engine.Engine, dispatcher CallDispatcher, logger *slog.Logger) (*Service, error) {
	if eng == nil {
		return nil, fmt.Errorf("timelock engine is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("call dispatcher is required")
	}
	return &Service{engine: eng, dispatcher: dispatcher, logger: logger}, nil
}

// Propose schedules a proposal. The action id is derived from the proposal
// content, the request time and the proposer, so identical proposals by the
// same proposer at different times stay distinct.
func (s *Service) Propose(ctx context.Context, calls []Call, approvals []string) (*models.TimelockedAction, error) {
	if len(calls) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "proposal needs at least one call")
	}
	for i, call := range calls {
		if call.Target == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "call target is required").With("call", i)
		}
	}
	payload, err := json.Marshal(Payload{Calls: calls})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode proposal")
	}
	id := deriveID(payload, requestcontext.Now(ctx), requestcontext.Caller(ctx).ID)
	return s.engine.Schedule(ctx, id, payload, approvals)
}

// Execute runs the proposal's calls in order once the window is open. The
// first failing call aborts the whole execution and the proposal stays
// executable within its window.
func (s *Service) Execute(ctx context.Context, id domain.ActionID) error {
	return s.engine.Execute(ctx, id, s.dispatchAll)
}

// ExecuteEmergency runs the proposal through the override path. Guardian
// privilege is enforced at the transport layer.
func (s *Service) ExecuteEmergency(ctx context.Context, id domain.ActionID, reason string) error {
	return s.engine.ExecuteEmergency(ctx, id, reason, s.dispatchAll)
}

// Proposal returns the stored action for inspection.
func (s *Service) Proposal(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	return s.engine.Action(ctx, id)
}

// Policy returns the governance timing configuration.
func (s *Service) Policy() models.Policy {
	return s.engine.Policy()
}

func (s *Service) dispatchAll(ctx context.Context, action *models.TimelockedAction) error {
	var payload Payload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("decode proposal payload: %w", err)
	}
	for i, call := range payload.Calls {
		if err := s.dispatcher.Dispatch(ctx, call); err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "proposal call failed",
					"request_id", requestcontext.RequestID(ctx),
					"action_id", action.ID,
					"call", i,
					"target", call.Target,
					"error", err,
				)
			}
			return fmt.Errorf("call %d to %s: %w", i, call.Target, err)
		}
	}
	return nil
}

// deriveID hashes the payload, the request time and the requester into the
// action id.
func deriveID(payload []byte, at time.Time, requester string) domain.ActionID {
	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(at.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(requester))
	return domain.ActionID(hex.EncodeToString(h.Sum(nil)))
}
