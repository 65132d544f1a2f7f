package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ledgermemory "aurum/internal/ledger/store/memory"
	"aurum/internal/timelock/budget"
	"aurum/internal/timelock/engine"
	"aurum/internal/timelock/models"
	"aurum/internal/timelock/store/actions"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/testutil"
)

const (
	day             = 24 * time.Hour
	treasuryAccount = domain.AccountID("treasury")
	operator        = domain.OperatorID("op-1")
	recipient       = domain.AccountID("grantee-1")
)

type TreasurySuite struct {
	suite.Suite
	ledger  *ledgermemory.Store
	budgets *budget.InMemoryBudgetStore
	service *Service
	now     time.Time
}

func TestTreasurySuite(t *testing.T) {
	suite.Run(t, new(TreasurySuite))
}

func (s *TreasurySuite) SetupTest() {
	eng, err := engine.New("treasury", actions.NewInMemory(), models.Policy{
		Delay:          day,
		Window:         3 * day,
		EmergencyDelay: 6 * time.Hour,
	})
	s.Require().NoError(err)

	s.budgets = budget.NewInMemoryStore()
	budgetSvc, err := budget.NewService(s.budgets, budget.Limits{
		PerTxLimit: domain.NewAmount(50_000),
		DailyLimit: domain.NewAmount(100_000),
	})
	s.Require().NoError(err)

	s.ledger = ledgermemory.New()
	s.service, err = New(eng, budgetSvc, s.ledger, treasuryAccount, nil)
	s.Require().NoError(err)

	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(s.ledger.Mint(context.Background(), treasuryAccount, domain.NewAmount(1_000_000)))
}

func (s *TreasurySuite) request(amount uint64) domain.ActionID {
	action, err := s.service.Request(testutil.ContextAt(s.now), operator, recipient, domain.NewAmount(amount), "grant payout")
	s.Require().NoError(err)
	return action.ID
}

func (s *TreasurySuite) TestRequest() {
	s.Run("consumes the operator's budget at request time", func() {
		s.request(40_000)

		b, err := s.budgets.Budget(context.Background(), operator)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(40_000), b.UsedToday)
	})

	s.Run("a request above the per-transaction cap never reaches the timelock", func() {
		_, err := s.service.Request(testutil.ContextAt(s.now), operator, recipient, domain.NewAmount(50_001), "too big")
		s.True(dErrors.Is(err, budget.KindOperatorLimitExceeded))
	})

	s.Run("the daily budget caps the sum of requests", func() {
		s.request(50_000)
		_, err := s.service.Request(testutil.ContextAt(s.now), operator, recipient, domain.NewAmount(20_000), "overflow")
		s.True(dErrors.Is(err, budget.KindDailyLimitExceeded))
	})

	s.Run("validates recipient and amount", func() {
		_, err := s.service.Request(testutil.ContextAt(s.now), operator, "", domain.NewAmount(1), "")
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
		_, err = s.service.Request(testutil.ContextAt(s.now), operator, recipient, domain.ZeroAmount, "")
		s.True(dErrors.Has(err, dErrors.CodeInvalidInput))
	})
}

func (s *TreasurySuite) TestExecute() {
	id := s.request(40_000)

	s.Run("refused before the delay elapses", func() {
		err := s.service.Execute(testutil.ContextAt(s.now.Add(time.Hour)), id)
		s.True(dErrors.Is(err, models.KindTooEarly))

		balance, balErr := s.ledger.Balance(context.Background(), recipient)
		s.Require().NoError(balErr)
		s.True(balance.IsZero())
	})

	s.Run("moves the funds once the window opens", func() {
		err := s.service.Execute(testutil.ContextAt(s.now.Add(day)), id)
		s.Require().NoError(err)

		balance, balErr := s.ledger.Balance(context.Background(), recipient)
		s.Require().NoError(balErr)
		s.Equal(domain.NewAmount(40_000), balance)

		treasury, balErr := s.ledger.Balance(context.Background(), treasuryAccount)
		s.Require().NoError(balErr)
		s.Equal(domain.NewAmount(960_000), treasury)
	})

	s.Run("a second execution pays nothing", func() {
		err := s.service.Execute(testutil.ContextAt(s.now.Add(day)), id)
		s.True(dErrors.Is(err, models.KindAlreadyExecuted))

		balance, balErr := s.ledger.Balance(context.Background(), recipient)
		s.Require().NoError(balErr)
		s.Equal(domain.NewAmount(40_000), balance)
	})

	s.Run("expires past the deadline", func() {
		expired := s.request(10_000)
		err := s.service.Execute(testutil.ContextAt(s.now.Add(5*day)), expired)
		s.True(dErrors.Is(err, models.KindTooLate))
	})
}

func (s *TreasurySuite) TestFailedTransferKeepsRequestExecutable() {
	id := s.request(40_000)

	// Drain the treasury so the payout fails.
	s.Require().NoError(s.ledger.Transfer(context.Background(), treasuryAccount, "elsewhere", domain.NewAmount(1_000_000)))

	at := testutil.ContextAt(s.now.Add(day))
	err := s.service.Execute(at, id)
	s.Require().Error(err)

	action, getErr := s.service.RequestByID(context.Background(), id)
	s.Require().NoError(getErr)
	s.False(action.Executed)

	// Refund the treasury and retry within the window.
	s.Require().NoError(s.ledger.Mint(context.Background(), treasuryAccount, domain.NewAmount(40_000)))
	s.Require().NoError(s.service.Execute(at, id))
}

func (s *TreasurySuite) TestExecuteEmergency() {
	id := s.request(40_000)

	err := s.service.ExecuteEmergency(testutil.ContextAt(s.now.Add(time.Hour)), id, "urgent payout")
	s.True(dErrors.Is(err, models.KindTooEarly))

	err = s.service.ExecuteEmergency(testutil.ContextAt(s.now.Add(6*time.Hour)), id, "urgent payout")
	s.Require().NoError(err)

	balance, balErr := s.ledger.Balance(context.Background(), recipient)
	s.Require().NoError(balErr)
	s.Equal(domain.NewAmount(40_000), balance)
}
