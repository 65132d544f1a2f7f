package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/burn/models"
	"aurum/pkg/domain"
)

var testSchedule = models.Schedule{
	MaxBurnCap: domain.NewAmount(500_000_000),
	Interval:   90 * 24 * time.Hour,
}

type InMemoryStateStoreSuite struct {
	suite.Suite
	store *InMemoryStateStore
	ctx   context.Context
	t0    time.Time
}

func TestInMemoryStateStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStateStoreSuite))
}

func (s *InMemoryStateStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemoryStateStoreSuite) apply(amount uint64, at time.Time) *models.Decision {
	decision, err := s.store.Apply(s.ctx, domain.NewAmount(amount), testSchedule, at)
	s.Require().NoError(err)
	return decision
}

func (s *InMemoryStateStoreSuite) TestFirstBurnExemption() {
	s.Run("first burn admitted regardless of interval", func() {
		decision := s.apply(1000, s.t0)
		s.True(decision.Admitted)
		s.True(decision.State.FirstBurnDone)
		s.Equal(s.t0, decision.State.LastBurnTime)
	})

	s.Run("second burn one second later is too early", func() {
		decision := s.apply(1000, s.t0.Add(time.Second))
		s.False(decision.Admitted)
		s.Equal(models.ReasonTooEarly, decision.Reason)
		s.Equal(s.t0.Add(testSchedule.Interval), decision.NextAllowedAt)
	})

	s.Run("burn at the interval boundary is admitted", func() {
		decision := s.apply(1000, s.t0.Add(testSchedule.Interval))
		s.True(decision.Admitted)
		s.Equal(domain.NewAmount(2000), decision.State.TotalBurned)
	})
}

func (s *InMemoryStateStoreSuite) TestCumulativeCap() {
	s.Run("burn up to the cap is admitted", func() {
		decision := s.apply(500_000_000, s.t0)
		s.True(decision.Admitted)
		s.True(decision.RemainingCap.IsZero())
	})

	s.Run("anything further exceeds the cap", func() {
		decision := s.apply(1, s.t0.Add(testSchedule.Interval))
		s.False(decision.Admitted)
		s.Equal(models.ReasonExceedsCap, decision.Reason)
		s.True(decision.RemainingCap.IsZero())
	})

	s.Run("denial advanced nothing", func() {
		state, err := s.store.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(domain.NewAmount(500_000_000), state.TotalBurned)
		s.Equal(s.t0, state.LastBurnTime)
	})
}

func (s *InMemoryStateStoreSuite) TestMonotonicity() {
	// Any mix of admitted and rejected burns never decreases TotalBurned and
	// never exceeds the cap.
	times := []time.Time{
		s.t0,
		s.t0.Add(time.Hour),
		s.t0.Add(testSchedule.Interval),
		s.t0.Add(testSchedule.Interval + time.Minute),
		s.t0.Add(3 * testSchedule.Interval),
	}
	prev := domain.ZeroAmount
	for _, at := range times {
		decision, err := s.store.Apply(s.ctx, domain.NewAmount(400_000_000), testSchedule, at)
		s.Require().NoError(err)
		s.GreaterOrEqual(decision.State.TotalBurned.Cmp(prev), 0)
		s.LessOrEqual(decision.State.TotalBurned.Cmp(testSchedule.MaxBurnCap), 0)
		prev = decision.State.TotalBurned
	}
}

func (s *InMemoryStateStoreSuite) TestZeroState() {
	state, err := s.store.Get(s.ctx)
	s.Require().NoError(err)
	s.True(state.TotalBurned.IsZero())
	s.False(state.FirstBurnDone)
}
