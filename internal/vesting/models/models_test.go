package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/pkg/domain"
)

const day = 24 * time.Hour

type VestingCurveSuite struct {
	suite.Suite
	grant VestingGrant
	start time.Time
}

func TestVestingCurveSuite(t *testing.T) {
	suite.Run(t, new(VestingCurveSuite))
}

func (s *VestingCurveSuite) SetupTest() {
	s.start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.grant = VestingGrant{
		Beneficiary:     "ben-1",
		TotalAllocation: domain.NewAmount(1_000_000),
		UnlockPct:       10,
		StartTime:       s.start,
		CliffDuration:   180 * day,
		VestingDuration: 540 * day,
	}
}

func (s *VestingCurveSuite) TestPortions() {
	s.Equal(domain.NewAmount(100_000), s.grant.InitialUnlock())
	s.Equal(domain.NewAmount(900_000), s.grant.RemainderAllocation())
	s.Equal(s.start.Add(180*day), s.grant.CliffEnd())
	s.Equal(s.start.Add(540*day), s.grant.VestingEnd())
}

func (s *VestingCurveSuite) TestVestedRemainder() {
	s.Run("zero before the cliff", func() {
		s.True(s.grant.VestedRemainder(s.start).IsZero())
		s.True(s.grant.VestedRemainder(s.start.Add(180*day - time.Second)).IsZero())
	})

	s.Run("zero exactly at the cliff end", func() {
		s.True(s.grant.VestedRemainder(s.start.Add(180 * day)).IsZero())
	})

	s.Run("half the remainder halfway through the linear window", func() {
		s.Equal(domain.NewAmount(450_000), s.grant.VestedRemainder(s.start.Add(360*day)))
	})

	s.Run("full remainder exactly at vesting end", func() {
		s.Equal(domain.NewAmount(900_000), s.grant.VestedRemainder(s.start.Add(540*day)))
	})

	s.Run("capped after vesting end", func() {
		s.Equal(domain.NewAmount(900_000), s.grant.VestedRemainder(s.start.Add(1000*day)))
	})

	s.Run("monotonically non-decreasing", func() {
		prev := domain.ZeroAmount
		for d := 0; d <= 600; d += 30 {
			vested := s.grant.VestedRemainder(s.start.Add(time.Duration(d) * day))
			s.GreaterOrEqual(vested.Cmp(prev), 0, "day %d", d)
			prev = vested
		}
	})
}

func (s *VestingCurveSuite) TestClaimable() {
	s.Run("unclaimed initial unlock does not count toward the entitlement", func() {
		s.True(s.grant.Claimable(s.start.Add(180 * day)).IsZero())
	})

	s.Run("after the initial claim the unlock is folded in", func() {
		g := s.grant
		g.InitialClaimed = true
		g.InitialUnlockClaimed = domain.NewAmount(100_000)
		g.TotalClaimed = domain.NewAmount(100_000)
		// Vested remainder at halfway is 450k; the claimed unlock cancels out.
		s.Equal(domain.NewAmount(450_000), g.Claimable(s.start.Add(360*day)))
	})

	s.Run("never negative", func() {
		g := s.grant
		g.TotalClaimed = domain.NewAmount(500_000)
		s.True(g.Claimable(s.start.Add(360 * day)).IsZero())
	})

	s.Run("conservation across the whole curve", func() {
		g := s.grant
		g.InitialClaimed = true
		g.InitialUnlockClaimed = domain.NewAmount(100_000)
		g.TotalClaimed = domain.NewAmount(100_000)
		for d := 0; d <= 600; d += 60 {
			claimable := g.Claimable(s.start.Add(time.Duration(d) * day))
			total := g.TotalClaimed.Plus(claimable)
			s.LessOrEqual(total.Cmp(g.TotalAllocation), 0, "day %d", d)
		}
	})
}
