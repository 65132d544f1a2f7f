// Package postgres implements the balance store over pgx. Each movement is a
// single transaction so balances and supply never diverge.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// Store is pure I/O; admission logic lives in the services.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a pgx-backed balance store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Balance returns the balance of an account, zero if never seen.
func (s *Store) Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error) {
	var balance domain.Amount
	err := s.pool.QueryRow(ctx,
		`SELECT balance::text FROM balances WHERE account = $1`, account.String(),
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Amount{}, nil
	}
	if err != nil {
		return domain.Amount{}, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// TotalSupply returns the current total supply.
func (s *Store) TotalSupply(ctx context.Context) (domain.Amount, error) {
	var supply domain.Amount
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(balance), 0)::text FROM balances`,
	).Scan(&supply)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("get total supply: %w", err)
	}
	return supply, nil
}

// Mint credits an account.
func (s *Store) Mint(ctx context.Context, to domain.AccountID, amount domain.Amount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO balances (account, balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE SET balance = balances.balance + EXCLUDED.balance
	`, to.String(), amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	return nil
}

// Transfer moves amount between accounts in one transaction. The conditional
// debit keeps the movement all-or-nothing: zero rows updated means the source
// balance could not cover it.
func (s *Store) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE balances SET balance = balance - $2::numeric
		WHERE account = $1 AND balance >= $2::numeric
	`, from.String(), amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrInsufficientFunds
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO balances (account, balance)
		VALUES ($1, $2::numeric)
		ON CONFLICT (account) DO UPDATE SET balance = balances.balance + EXCLUDED.balance
	`, to.String(), amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

// Burn debits an account; supply is derived from the balances table so no
// separate row needs updating.
func (s *Store) Burn(ctx context.Context, from domain.AccountID, amount domain.Amount) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE balances SET balance = balance - $2::numeric
		WHERE account = $1 AND balance >= $2::numeric
	`, from.String(), amount)
	if err != nil {
		return fmt.Errorf("burn debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrInsufficientFunds
	}
	return nil
}
