package window

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
)

// PostgresWindowStore persists account windows in PostgreSQL. Consume runs in
// a transaction holding a per-account advisory lock so concurrent transfers
// on one account serialize; different accounts proceed in parallel.
//
// Schema:
//
//	CREATE TABLE account_windows (
//	    account          TEXT PRIMARY KEY,
//	    window_start     TIMESTAMPTZ NOT NULL,
//	    amount_in_window NUMERIC(78,0) NOT NULL DEFAULT 0,
//	    transfer_count   BIGINT NOT NULL DEFAULT 0,
//	    exempt           BOOLEAN NOT NULL DEFAULT FALSE
//	);
type PostgresWindowStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed window store.
func NewPostgres(db *sql.DB) *PostgresWindowStore {
	return &PostgresWindowStore{db: db}
}

// Consume applies the fixed-bucket algorithm inside one transaction.
func (s *PostgresWindowStore) Consume(ctx context.Context, account domain.AccountID, amount domain.Amount, limits models.Limits, now time.Time) (*models.Decision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consume: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, account.String()); err != nil {
		return nil, fmt.Errorf("acquire window lock: %w", err)
	}

	var (
		windowStart    time.Time
		amountInWindow domain.Amount
		transferCount  uint64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT window_start, amount_in_window::text, transfer_count
		FROM account_windows WHERE account = $1
	`, account.String()).Scan(&windowStart, &amountInWindow, &transferCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		windowStart = now
	case err != nil:
		return nil, fmt.Errorf("read window: %w", err)
	}

	if !now.Before(windowStart.Add(limits.Period)) {
		windowStart = now
		amountInWindow = domain.Amount{}
	}

	resetAt := windowStart.Add(limits.Period)
	consumed := amountInWindow.Plus(amount)
	if consumed.Cmp(limits.Limit) > 0 {
		// Denials must be side-effect free; roll the transaction back
		// without persisting the (possibly reset) window.
		return &models.Decision{
			Allowed:   false,
			Remaining: limits.Limit.Minus(amountInWindow),
			ResetAt:   resetAt,
		}, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO account_windows (account, window_start, amount_in_window, transfer_count)
		VALUES ($1, $2, $3::numeric, 1)
		ON CONFLICT (account) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			amount_in_window = EXCLUDED.amount_in_window,
			transfer_count = account_windows.transfer_count + 1
	`, account.String(), windowStart, consumed)
	if err != nil {
		return nil, fmt.Errorf("write window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consume: %w", err)
	}
	return &models.Decision{
		Allowed:   true,
		Remaining: limits.Limit.Minus(consumed),
		ResetAt:   resetAt,
	}, nil
}

// Window returns the stored window for an account, nil if never seen.
func (s *PostgresWindowStore) Window(ctx context.Context, account domain.AccountID) (*models.AccountWindow, error) {
	w := models.AccountWindow{Account: account}
	err := s.db.QueryRowContext(ctx, `
		SELECT window_start, amount_in_window::text, transfer_count, exempt
		FROM account_windows WHERE account = $1
	`, account.String()).Scan(&w.WindowStart, &w.AmountInWindow, &w.TransferCount, &w.Exempt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	return &w, nil
}

// SetExempt flags an account to bypass rate limiting, creating the row if the
// account has never transferred.
func (s *PostgresWindowStore) SetExempt(ctx context.Context, account domain.AccountID, exempt bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_windows (account, window_start, exempt)
		VALUES ($1, NOW(), $2)
		ON CONFLICT (account) DO UPDATE SET exempt = EXCLUDED.exempt
	`, account.String(), exempt)
	if err != nil {
		return fmt.Errorf("set exempt: %w", err)
	}
	return nil
}

// IsExempt reports whether an account bypasses rate limiting.
func (s *PostgresWindowStore) IsExempt(ctx context.Context, account domain.AccountID) (bool, error) {
	var exempt bool
	err := s.db.QueryRowContext(ctx, `
		SELECT exempt FROM account_windows WHERE account = $1
	`, account.String()).Scan(&exempt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get exempt: %w", err)
	}
	return exempt, nil
}
