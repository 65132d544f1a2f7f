package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ledgermemory "aurum/internal/ledger/store/memory"
	"aurum/internal/vesting/models"
	"aurum/internal/vesting/store/grants"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	auditmemory "aurum/pkg/platform/audit/store/memory"
	"aurum/pkg/testutil"
)

const (
	day         = 24 * time.Hour
	poolAccount = domain.AccountID("vesting-pool")
	beneficiary = domain.BeneficiaryID("ben-1")
)

var testCurve = Curve{
	UnlockPct:       10,
	CliffDuration:   180 * day,
	VestingDuration: 540 * day,
}

type VestingServiceSuite struct {
	suite.Suite
	store   *grants.InMemoryGrantStore
	ledger  *ledgermemory.Store
	events  *auditmemory.Store
	service *Service
	start   time.Time
}

func TestVestingServiceSuite(t *testing.T) {
	suite.Run(t, new(VestingServiceSuite))
}

func (s *VestingServiceSuite) SetupTest() {
	s.store = grants.NewInMemory()
	s.ledger = ledgermemory.New()
	s.events = auditmemory.New()
	var err error
	s.service, err = New(s.store, s.ledger, poolAccount, testCurve,
		WithAuditPublisher(audit.NewPublisher(s.events)),
	)
	s.Require().NoError(err)
	s.start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.ledger.Mint(context.Background(), poolAccount, domain.NewAmount(10_000_000)))
}

func (s *VestingServiceSuite) register(allocation uint64) {
	_, err := s.service.RegisterGrant(testutil.ContextAt(s.start), beneficiary, domain.NewAmount(allocation), s.start)
	s.Require().NoError(err)
}

func (s *VestingServiceSuite) TestRegisterGrant() {
	s.Run("creates the grant with the configured curve", func() {
		grant, err := s.service.RegisterGrant(testutil.ContextAt(s.start), beneficiary, domain.NewAmount(1_000_000), s.start)
		s.Require().NoError(err)
		s.Equal(uint64(10), grant.UnlockPct)
		s.Equal(180*day, grant.CliffDuration)
		s.Equal(540*day, grant.VestingDuration)
		s.Equal(s.start, grant.StartTime)
	})

	s.Run("re-registering the same beneficiary fails", func() {
		_, err := s.service.RegisterGrant(testutil.ContextAt(s.start), beneficiary, domain.NewAmount(500), s.start)
		s.True(dErrors.Is(err, models.KindAlreadyRegistered))
	})

	s.Run("zero start time anchors at the request time", func() {
		at := s.start.Add(30 * day)
		grant, err := s.service.RegisterGrant(testutil.ContextAt(at), "ben-2", domain.NewAmount(1000), time.Time{})
		s.Require().NoError(err)
		s.Equal(at, grant.StartTime)
	})

	s.Run("rejects zero allocation", func() {
		_, err := s.service.RegisterGrant(testutil.ContextAt(s.start), "ben-3", domain.ZeroAmount, s.start)
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})
}

func (s *VestingServiceSuite) TestClaimInitialUnlock() {
	s.register(1_000_000)

	s.Run("before the start time there is nothing to claim", func() {
		_, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start.Add(-time.Hour)), beneficiary)
		s.True(dErrors.Is(err, models.KindNothingToClaim))
	})

	s.Run("at the start time pays the unlock percentage", func() {
		amount, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start), beneficiary)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(100_000), amount)

		balance, err := s.ledger.Balance(context.Background(), beneficiary.Account())
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(100_000), balance)
	})

	s.Run("a second claim fails", func() {
		_, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start.Add(day)), beneficiary)
		s.True(dErrors.Is(err, models.KindAlreadyClaimed))
	})

	s.Run("unregistered beneficiary has no allocation", func() {
		_, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start), "stranger")
		s.True(dErrors.Is(err, models.KindNoAllocation))
	})
}

func (s *VestingServiceSuite) TestClaimVested() {
	s.register(1_000_000)
	initial, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start), beneficiary)
	s.Require().NoError(err)
	s.Require().Equal(domain.NewAmount(100_000), initial)

	s.Run("nothing to claim at the cliff end", func() {
		_, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(180*day)), beneficiary)
		s.True(dErrors.Is(err, models.KindNothingToClaim))
	})

	s.Run("nothing to claim before the cliff carries the cliff end", func() {
		_, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(30*day)), beneficiary)
		s.Require().Error(err)
		s.Equal(s.start.Add(180*day).Format(time.RFC3339), dErrors.DetailsOf(err)["cliff_end"])
	})

	s.Run("halfway through the linear window pays half the remainder", func() {
		amount, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(360*day)), beneficiary)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(450_000), amount)
	})

	s.Run("an immediate second claim has nothing left", func() {
		_, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(360*day)), beneficiary)
		s.True(dErrors.Is(err, models.KindNothingToClaim))
	})

	s.Run("the rest releases by vesting end", func() {
		amount, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(540*day)), beneficiary)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(450_000), amount)

		grant, err := s.service.Grant(context.Background(), beneficiary)
		s.Require().NoError(err)
		s.Equal(grant.TotalAllocation, grant.TotalClaimed)
	})
}

func (s *VestingServiceSuite) TestClaimVestedBeforeInitialClaim() {
	s.register(1_000_000)

	// The unclaimed initial unlock never inflates the vested entitlement.
	amount, err := s.service.ClaimVested(testutil.ContextAt(s.start.Add(360*day)), beneficiary)
	s.Require().NoError(err)
	s.Equal(domain.NewAmount(450_000), amount)

	// The initial unlock is still claimable afterwards.
	initial, err := s.service.ClaimInitialUnlock(testutil.ContextAt(s.start.Add(360*day)), beneficiary)
	s.Require().NoError(err)
	s.Equal(domain.NewAmount(100_000), initial)
}

func (s *VestingServiceSuite) TestFailedPayoutLeavesAccountingUntouched() {
	failing := &failingTokenSource{err: errors.New("pool transfer refused")}
	service, err := New(s.store, failing, poolAccount, testCurve)
	s.Require().NoError(err)
	s.register(1_000_000)

	_, err = service.ClaimInitialUnlock(testutil.ContextAt(s.start), beneficiary)
	s.Require().Error(err)

	_, err = service.ClaimVested(testutil.ContextAt(s.start.Add(360*day)), beneficiary)
	s.Require().Error(err)

	grant, err := service.Grant(context.Background(), beneficiary)
	s.Require().NoError(err)
	s.False(grant.InitialClaimed)
	s.True(grant.TotalClaimed.IsZero())
}

type failingTokenSource struct {
	err error
}

func (f *failingTokenSource) Transfer(context.Context, domain.AccountID, domain.AccountID, domain.Amount) error {
	return f.err
}
