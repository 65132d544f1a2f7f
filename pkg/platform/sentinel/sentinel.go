package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with the right
// code and retry details.
//
// These represent factual states about stored entities, not validation
// failures:
// - ErrNotFound: entity does not exist in the store
// - ErrConflict: entity already exists (duplicate grant, reused action id)
// - ErrInsufficientFunds: ledger balance cannot cover the requested movement
// - ErrInvalidState: entity in the wrong state for the requested transition
// - ErrUnavailable: backing resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidState      = errors.New("invalid state")
	ErrUnavailable       = errors.New("unavailable")
)
