// Package models holds the vesting ledger's grant state and curve math.
package models

import (
	"time"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
)

// VestingGrant is one beneficiary's allocation and claim accounting. A grant
// is created exactly once; re-registering the same beneficiary fails. Claim
// accounting is monotone: TotalClaimed never decreases and never exceeds
// TotalAllocation.
type VestingGrant struct {
	Beneficiary          domain.BeneficiaryID `json:"beneficiary"`
	TotalAllocation      domain.Amount        `json:"total_allocation"`
	UnlockPct            uint64               `json:"unlock_pct"`
	StartTime            time.Time            `json:"start_time"`
	CliffDuration        time.Duration        `json:"cliff_duration"`
	VestingDuration      time.Duration        `json:"vesting_duration"`
	InitialClaimed       bool                 `json:"initial_claimed"`
	InitialUnlockClaimed domain.Amount        `json:"initial_unlock_claimed"`
	TotalClaimed         domain.Amount        `json:"total_claimed"`
}

// InitialUnlock is the portion released at StartTime with no cliff.
func (g *VestingGrant) InitialUnlock() domain.Amount {
	return g.TotalAllocation.MulDiv(g.UnlockPct, 100)
}

// RemainderAllocation is the portion subject to the cliff and linear release.
func (g *VestingGrant) RemainderAllocation() domain.Amount {
	return g.TotalAllocation.Minus(g.InitialUnlock())
}

// CliffEnd is when the linear release begins.
func (g *VestingGrant) CliffEnd() time.Time {
	return g.StartTime.Add(g.CliffDuration)
}

// VestingEnd is when the remainder is fully released.
func (g *VestingGrant) VestingEnd() time.Time {
	return g.StartTime.Add(g.VestingDuration)
}

// VestedRemainder is the released portion of the remainder at time t: zero
// before the cliff ends, the full remainder at VestingEnd and beyond, linear
// interpolation in between. Pure in t; never reads the clock.
func (g *VestingGrant) VestedRemainder(t time.Time) domain.Amount {
	cliffEnd := g.CliffEnd()
	if t.Before(cliffEnd) {
		return domain.ZeroAmount
	}
	remainder := g.RemainderAllocation()
	if !t.Before(g.VestingEnd()) {
		return remainder
	}
	linear := g.VestingDuration - g.CliffDuration
	if linear <= 0 {
		return remainder
	}
	elapsed := t.Sub(cliffEnd)
	return remainder.MulDiv(uint64(elapsed/time.Second), uint64(linear/time.Second))
}

// Claimable is the amount a vested claim would pay at time t. The initial
// unlock only counts toward the entitlement once it has been claimed, so
// calling before or after the initial-unlock claim is equally safe. The
// saturating subtraction keeps the result non-negative.
func (g *VestingGrant) Claimable(t time.Time) domain.Amount {
	entitled := g.VestedRemainder(t)
	if g.InitialClaimed {
		entitled = entitled.Plus(g.InitialUnlockClaimed)
	}
	return entitled.Minus(g.TotalClaimed)
}

// Caller-visible rejection kinds.
const (
	KindAlreadyRegistered = "vesting_already_registered"
	KindNoAllocation      = "vesting_no_allocation"
	KindAlreadyClaimed    = "vesting_already_claimed"
	KindNothingToClaim    = "vesting_nothing_to_claim"
)

// ErrAlreadyRegistered rejects a second grant for the same beneficiary.
func ErrAlreadyRegistered(beneficiary domain.BeneficiaryID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeConflict, KindAlreadyRegistered, "beneficiary already has a vesting grant").
		With("beneficiary", beneficiary.String())
}

// ErrNoAllocation rejects a claim from an unregistered beneficiary.
func ErrNoAllocation(beneficiary domain.BeneficiaryID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeNotFound, KindNoAllocation, "beneficiary has no vesting grant").
		With("beneficiary", beneficiary.String())
}

// ErrAlreadyClaimed rejects a second initial-unlock claim.
func ErrAlreadyClaimed(beneficiary domain.BeneficiaryID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeConflict, KindAlreadyClaimed, "initial unlock already claimed").
		With("beneficiary", beneficiary.String())
}

// ErrNothingToClaim rejects a claim whose computed amount is zero. Call sites
// attach the time the next portion becomes claimable where one exists.
func ErrNothingToClaim(beneficiary domain.BeneficiaryID) *dErrors.Error {
	return dErrors.NewKind(dErrors.CodeConflict, KindNothingToClaim, "no claimable amount").
		With("beneficiary", beneficiary.String())
}
