package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aurum/pkg/domain"
)

// PostgresBudgetStore persists operator budgets in PostgreSQL. Consume runs
// in a transaction holding a per-operator advisory lock so concurrent
// requests by one operator serialize; different operators proceed in
// parallel.
//
// Schema:
//
//	CREATE TABLE operator_budgets (
//	    operator   TEXT PRIMARY KEY,
//	    day_anchor TIMESTAMPTZ NOT NULL,
//	    used_today NUMERIC(78,0) NOT NULL DEFAULT 0
//	);
type PostgresBudgetStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed budget store.
func NewPostgresStore(db *sql.DB) *PostgresBudgetStore {
	return &PostgresBudgetStore{db: db}
}

// Consume applies the fixed-bucket algorithm inside one transaction.
func (s *PostgresBudgetStore) Consume(ctx context.Context, operator domain.OperatorID, amount, dailyLimit domain.Amount, now time.Time) (*Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consume: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, operator.String()); err != nil {
		return nil, fmt.Errorf("acquire budget lock: %w", err)
	}

	var (
		dayAnchor time.Time
		usedToday domain.Amount
	)
	err = tx.QueryRowContext(ctx, `
		SELECT day_anchor, used_today::text
		FROM operator_budgets WHERE operator = $1
	`, operator.String()).Scan(&dayAnchor, &usedToday)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		dayAnchor = now
	case err != nil:
		return nil, fmt.Errorf("read budget: %w", err)
	}

	if !now.Before(dayAnchor.Add(dayLength)) {
		dayAnchor = now
		usedToday = domain.Amount{}
	}

	resetAt := dayAnchor.Add(dayLength)
	used := usedToday.Plus(amount)
	if used.Cmp(dailyLimit) > 0 {
		// Denials must be side-effect free; roll the transaction back
		// without persisting the (possibly reset) bucket.
		return &Decision{
			Allowed:   false,
			Remaining: dailyLimit.Minus(usedToday),
			ResetAt:   resetAt,
		}, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO operator_budgets (operator, day_anchor, used_today)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (operator) DO UPDATE SET
			day_anchor = EXCLUDED.day_anchor,
			used_today = EXCLUDED.used_today
	`, operator.String(), dayAnchor, used)
	if err != nil {
		return nil, fmt.Errorf("write budget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consume: %w", err)
	}
	return &Decision{
		Allowed:   true,
		Remaining: dailyLimit.Minus(used),
		ResetAt:   resetAt,
	}, nil
}

// Budget returns the stored bucket for an operator, nil if never seen.
func (s *PostgresBudgetStore) Budget(ctx context.Context, operator domain.OperatorID) (*OperatorBudget, error) {
	b := OperatorBudget{Operator: operator}
	err := s.db.QueryRowContext(ctx, `
		SELECT day_anchor, used_today::text
		FROM operator_budgets WHERE operator = $1
	`, operator.String()).Scan(&b.DayAnchor, &b.UsedToday)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}
