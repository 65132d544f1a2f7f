package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

const operator = domain.OperatorID("op-1")

var testLimits = Limits{
	PerTxLimit: domain.NewAmount(50_000),
	DailyLimit: domain.NewAmount(100_000),
}

type BudgetSuite struct {
	suite.Suite
	store   *InMemoryBudgetStore
	service *Service
	now     time.Time
}

func TestBudgetSuite(t *testing.T) {
	suite.Run(t, new(BudgetSuite))
}

func (s *BudgetSuite) SetupTest() {
	s.store = NewInMemoryStore()
	var err error
	s.service, err = NewService(s.store, testLimits)
	s.Require().NoError(err)
	s.now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
}

func (s *BudgetSuite) TestPerTxLimit() {
	s.Run("a request above the instantaneous cap is refused", func() {
		err := s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.NewAmount(50_001))
		s.True(dErrors.Is(err, KindOperatorLimitExceeded))
		s.Equal("50000", dErrors.DetailsOf(err)["per_tx_limit"])
	})

	s.Run("the refusal never touches the day bucket", func() {
		b, err := s.store.Budget(context.Background(), operator)
		s.Require().NoError(err)
		s.Nil(b)
	})

	s.Run("a request at the cap is admitted", func() {
		s.NoError(s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.NewAmount(50_000)))
	})
}

func (s *BudgetSuite) TestDailyLimit() {
	at := testutil.ContextAt(s.now)
	s.Require().NoError(s.service.CheckAndConsume(at, operator, domain.NewAmount(50_000)))
	s.Require().NoError(s.service.CheckAndConsume(at, operator, domain.NewAmount(40_000)))

	s.Run("overflowing the day is refused with the remaining allowance", func() {
		err := s.service.CheckAndConsume(at, operator, domain.NewAmount(20_000))
		s.True(dErrors.Is(err, KindDailyLimitExceeded))
		s.Equal("10000", dErrors.DetailsOf(err)["remaining"])
		s.Equal(s.now.Add(24*time.Hour).Format(time.RFC3339), dErrors.DetailsOf(err)["reset_at"])
	})

	s.Run("the denial leaves the accumulator unchanged", func() {
		b, err := s.store.Budget(context.Background(), operator)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(90_000), b.UsedToday)
	})

	s.Run("the exact remainder still fits", func() {
		s.NoError(s.service.CheckAndConsume(at, operator, domain.NewAmount(10_000)))
	})

	s.Run("operators do not share buckets", func() {
		s.NoError(s.service.CheckAndConsume(at, "op-2", domain.NewAmount(50_000)))
	})
}

func (s *BudgetSuite) TestDayBoundaryReset() {
	s.Require().NoError(s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.NewAmount(50_000)))
	s.Require().NoError(s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.NewAmount(50_000)))

	s.Run("still refused just before the boundary", func() {
		err := s.service.CheckAndConsume(testutil.ContextAt(s.now.Add(24*time.Hour-time.Second)), operator, domain.NewAmount(1))
		s.True(dErrors.Is(err, KindDailyLimitExceeded))
	})

	s.Run("a full budget is available exactly at the boundary", func() {
		at := s.now.Add(24 * time.Hour)
		s.NoError(s.service.CheckAndConsume(testutil.ContextAt(at), operator, domain.NewAmount(50_000)))

		b, err := s.store.Budget(context.Background(), operator)
		s.Require().NoError(err)
		s.Equal(at, b.DayAnchor)
		s.Equal(domain.NewAmount(50_000), b.UsedToday)
	})
}

func (s *BudgetSuite) TestSetLimits() {
	s.Run("new limits apply from the next consume", func() {
		err := s.service.SetLimits(context.Background(), Limits{
			PerTxLimit: domain.NewAmount(1_000),
			DailyLimit: domain.NewAmount(2_000),
		})
		s.Require().NoError(err)

		err = s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.NewAmount(1_001))
		s.True(dErrors.Is(err, KindOperatorLimitExceeded))
	})

	s.Run("rejects zero limits", func() {
		err := s.service.SetLimits(context.Background(), Limits{DailyLimit: domain.NewAmount(1)})
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})
}

func (s *BudgetSuite) TestValidation() {
	s.Run("operator is required", func() {
		err := s.service.CheckAndConsume(testutil.ContextAt(s.now), "", domain.NewAmount(1))
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})

	s.Run("amount must be positive", func() {
		err := s.service.CheckAndConsume(testutil.ContextAt(s.now), operator, domain.ZeroAmount)
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})

	s.Run("unseen operator has no budget to inspect", func() {
		_, err := s.service.Budget(context.Background(), "ghost")
		s.True(dErrors.Has(err, dErrors.CodeNotFound))
	})
}
