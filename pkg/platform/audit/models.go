// Package audit captures structured records of every admitted or rejected
// time-gated operation. Events are transport-agnostic so sinks (memory store,
// Kafka) can fan out without engine involvement.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose, enabling
// different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// burns, vesting claims, treasury executions, governance executions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics:
	// rejected operations, emergency overrides, configuration changes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine visibility events that can be
	// sampled: admitted transfers, window resets.
	CategoryOperations EventCategory = "operations"
)

// Event is one audit record. Amounts travel as decimal strings so sinks never
// need the domain types.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Actor     string        `json:"actor,omitempty"`
	Action    string        `json:"action"`
	Subject   string        `json:"subject,omitempty"`
	Amount    string        `json:"amount,omitempty"`
	Decision  string        `json:"decision,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// Action names for the core engines. Handlers and services reference these
// rather than bare strings so the audit stream stays greppable.
const (
	ActionTransferAdmitted  = "transfer_admitted"
	ActionTransferRejected  = "transfer_rejected"
	ActionRateLimitChanged  = "rate_limit_changed"
	ActionExemptionChanged  = "rate_limit_exemption_changed"
	ActionBurnExecuted      = "burn_executed"
	ActionBurnRejected      = "burn_rejected"
	ActionGrantRegistered   = "vesting_grant_registered"
	ActionInitialClaimed    = "vesting_initial_unlock_claimed"
	ActionVestedClaimed     = "vesting_claimed"
	ActionClaimRejected     = "vesting_claim_rejected"
	ActionScheduled         = "timelock_scheduled"
	ActionExecuted          = "timelock_executed"
	ActionEmergencyExecuted = "timelock_emergency_executed"
	ActionExecuteRejected   = "timelock_execute_rejected"
	ActionBudgetRejected    = "operator_budget_rejected"
	ActionBudgetChanged     = "operator_budget_changed"
)
