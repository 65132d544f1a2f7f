//go:build integration

package window_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aurum/internal/ratelimit/models"
	"aurum/internal/ratelimit/store/window"
	"aurum/pkg/domain"
	"aurum/pkg/testutil/containers"
)

type PostgresWindowSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *window.PostgresWindowStore
	limits   models.Limits
	now      time.Time
}

func TestPostgresWindowSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresWindowSuite))
}

func (s *PostgresWindowSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = window.NewPostgres(s.postgres.DB)
	s.limits = models.Limits{Limit: domain.NewAmount(100_000), Period: time.Hour}
	s.now = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresWindowSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "account_windows"))
}

func (s *PostgresWindowSuite) TestConsumeLifecycle() {
	ctx := context.Background()
	account := domain.AccountID("alice")

	decision, err := s.store.Consume(ctx, account, domain.NewAmount(60_000), s.limits, s.now)
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.Equal(domain.NewAmount(40_000), decision.Remaining)

	// Overflow is denied and persists nothing.
	decision, err = s.store.Consume(ctx, account, domain.NewAmount(40_001), s.limits, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal(domain.NewAmount(40_000), decision.Remaining)

	w, err := s.store.Window(ctx, account)
	s.Require().NoError(err)
	s.Require().NotNil(w)
	s.Equal(domain.NewAmount(60_000), w.AmountInWindow)
	s.Equal(uint64(1), w.TransferCount)

	// A fresh window opens exactly at the boundary.
	decision, err = s.store.Consume(ctx, account, domain.NewAmount(100_000), s.limits, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.True(decision.Allowed)
	s.True(decision.Remaining.IsZero())
}

// Concurrent consumes on one account never admit more than the limit in a
// window; the advisory lock serializes them.
func (s *PostgresWindowSuite) TestConcurrentConsume() {
	ctx := context.Background()
	account := domain.AccountID("contended")
	const goroutines = 50

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := s.store.Consume(ctx, account, domain.NewAmount(10_000), s.limits, s.now)
			s.NoError(err)
			if decision != nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(10), allowed.Load())

	w, err := s.store.Window(ctx, account)
	s.Require().NoError(err)
	s.Equal(domain.NewAmount(100_000), w.AmountInWindow)
	s.Equal(uint64(10), w.TransferCount)
}

func (s *PostgresWindowSuite) TestExemptions() {
	ctx := context.Background()
	account := domain.AccountID("pool")

	exempt, err := s.store.IsExempt(ctx, account)
	s.Require().NoError(err)
	s.False(exempt)

	s.Require().NoError(s.store.SetExempt(ctx, account, true))
	exempt, err = s.store.IsExempt(ctx, account)
	s.Require().NoError(err)
	s.True(exempt)

	// Revoking keeps the row and clears the flag.
	s.Require().NoError(s.store.SetExempt(ctx, account, false))
	exempt, err = s.store.IsExempt(ctx, account)
	s.Require().NoError(err)
	s.False(exempt)
}

func (s *PostgresWindowSuite) TestLargeAmounts() {
	ctx := context.Background()
	account := domain.AccountID("whale")
	limit, err := domain.ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	s.Require().NoError(err)
	limits := models.Limits{Limit: limit, Period: time.Hour}

	decision, err := s.store.Consume(ctx, account, limit, limits, s.now)
	s.Require().NoError(err)
	s.True(decision.Allowed)

	w, err := s.store.Window(ctx, account)
	s.Require().NoError(err)
	s.Equal(limit, w.AmountInWindow)
}
