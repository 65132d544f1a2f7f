// Package domain holds the identifier and value types shared across engines.
// Keeping them here lets services and stores agree on types without importing
// each other.
package domain

// AccountID identifies a token-holding account on the ledger.
type AccountID string

// IsZero reports whether the account id is unset.
func (a AccountID) IsZero() bool { return a == "" }

// String returns the string representation.
func (a AccountID) String() string { return string(a) }

// BeneficiaryID identifies a vesting grant beneficiary. Beneficiaries are
// ledger accounts, but the distinct type keeps vesting call sites honest.
type BeneficiaryID string

func (b BeneficiaryID) IsZero() bool  { return b == "" }
func (b BeneficiaryID) String() string { return string(b) }

// Account returns the ledger account claims are paid to.
func (b BeneficiaryID) Account() AccountID { return AccountID(b) }

// OperatorID identifies a treasury operator subject to a daily budget.
type OperatorID string

func (o OperatorID) IsZero() bool   { return o == "" }
func (o OperatorID) String() string { return string(o) }

// ActionID is the content-derived identifier of a timelocked action
// (hex-encoded hash over payload, request time and requester).
type ActionID string

func (a ActionID) IsZero() bool   { return a == "" }
func (a ActionID) String() string { return string(a) }
