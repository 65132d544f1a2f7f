package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
)

var testLimits = models.Limits{
	Limit:  domain.NewAmount(100_000),
	Period: time.Hour,
}

type InMemoryWindowStoreSuite struct {
	suite.Suite
	store *InMemoryWindowStore
	ctx   context.Context
	t0    time.Time
}

func TestInMemoryWindowStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryWindowStoreSuite))
}

func (s *InMemoryWindowStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryWindowStoreSuite) consume(account string, amount uint64, at time.Time) *models.Decision {
	decision, err := s.store.Consume(s.ctx, domain.AccountID(account), domain.NewAmount(amount), testLimits, at)
	s.Require().NoError(err)
	return decision
}

func (s *InMemoryWindowStoreSuite) TestConsume() {
	s.Run("first transfer opens the window", func() {
		decision := s.consume("alice", 40_000, s.t0)
		s.True(decision.Allowed)
		s.Equal(domain.NewAmount(60_000), decision.Remaining)
		s.Equal(s.t0.Add(time.Hour), decision.ResetAt)
	})

	s.Run("exactly the limit is admitted", func() {
		decision := s.consume("bob", 100_000, s.t0)
		s.True(decision.Allowed)
		s.True(decision.Remaining.IsZero())
	})

	s.Run("one over the limit is denied", func() {
		s.consume("carol", 100_000, s.t0)
		decision := s.consume("carol", 1, s.t0)
		s.False(decision.Allowed)
		s.True(decision.Remaining.IsZero())
	})

	s.Run("denial mutates nothing", func() {
		s.consume("dave", 90_000, s.t0)
		s.consume("dave", 20_000, s.t0.Add(time.Minute))

		w, err := s.store.Window(s.ctx, "dave")
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(90_000), w.AmountInWindow)
		s.Equal(uint64(1), w.TransferCount)
		s.Equal(s.t0, w.WindowStart)
	})

	s.Run("transfer count increments per admitted transfer", func() {
		s.consume("erin", 10_000, s.t0)
		s.consume("erin", 10_000, s.t0.Add(time.Minute))
		w, err := s.store.Window(s.ctx, "erin")
		s.Require().NoError(err)
		s.Equal(uint64(2), w.TransferCount)
	})
}

func (s *InMemoryWindowStoreSuite) TestWindowBoundary() {
	s.Run("full limit at window start", func() {
		decision := s.consume("frank", 100_000, s.t0)
		s.True(decision.Allowed)
	})

	s.Run("still denied one second before the boundary", func() {
		s.consume("grace", 100_000, s.t0)
		decision := s.consume("grace", 1, s.t0.Add(time.Hour-time.Second))
		s.False(decision.Allowed)
	})

	s.Run("exactly at the boundary lands in a fresh window", func() {
		s.consume("heidi", 100_000, s.t0)
		decision := s.consume("heidi", 1, s.t0.Add(time.Hour))
		s.True(decision.Allowed)
		s.Equal(domain.NewAmount(99_999), decision.Remaining)

		w, err := s.store.Window(s.ctx, "heidi")
		s.Require().NoError(err)
		s.Equal(s.t0.Add(time.Hour), w.WindowStart)
		s.Equal(domain.NewAmount(1), w.AmountInWindow)
	})

	s.Run("the bucket resets wholesale, not sliding", func() {
		s.consume("ivan", 60_000, s.t0)
		s.consume("ivan", 40_000, s.t0.Add(30*time.Minute))
		// A rolling window would still count the 40k spent at t0+30m.
		decision := s.consume("ivan", 100_000, s.t0.Add(time.Hour))
		s.True(decision.Allowed)
	})
}

func (s *InMemoryWindowStoreSuite) TestScenarioFullLimitCycle() {
	s.True(s.consume("acct", 100_000, s.t0).Allowed)
	s.False(s.consume("acct", 1, s.t0).Allowed)
	s.True(s.consume("acct", 100_000, s.t0.Add(3600*time.Second)).Allowed)
}

func (s *InMemoryWindowStoreSuite) TestExemptions() {
	s.Run("unknown account is not exempt", func() {
		exempt, err := s.store.IsExempt(s.ctx, "nobody")
		s.Require().NoError(err)
		s.False(exempt)
	})

	s.Run("set and clear", func() {
		s.Require().NoError(s.store.SetExempt(s.ctx, "pool", true))
		exempt, err := s.store.IsExempt(s.ctx, "pool")
		s.Require().NoError(err)
		s.True(exempt)

		s.Require().NoError(s.store.SetExempt(s.ctx, "pool", false))
		exempt, err = s.store.IsExempt(s.ctx, "pool")
		s.Require().NoError(err)
		s.False(exempt)
	})
}

func (s *InMemoryWindowStoreSuite) TestWindowLookup() {
	w, err := s.store.Window(s.ctx, "never-seen")
	s.Require().NoError(err)
	s.Nil(w)
}
