package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aurum/internal/vesting/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// PostgresGrantStore persists grants keyed by beneficiary. Claim commits are
// single conditional UPDATEs, so concurrent claims on one grant serialize on
// the row and a failed precondition changes nothing.
//
// Schema:
//
//	CREATE TABLE vesting_grants (
//	    beneficiary            TEXT PRIMARY KEY,
//	    total_allocation       NUMERIC(78,0) NOT NULL,
//	    unlock_pct             BIGINT NOT NULL,
//	    start_time             TIMESTAMPTZ NOT NULL,
//	    cliff_seconds          BIGINT NOT NULL,
//	    vesting_seconds        BIGINT NOT NULL,
//	    initial_claimed        BOOLEAN NOT NULL DEFAULT FALSE,
//	    initial_unlock_claimed NUMERIC(78,0) NOT NULL DEFAULT 0,
//	    total_claimed          NUMERIC(78,0) NOT NULL DEFAULT 0
//	);
type PostgresGrantStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed grant store.
func NewPostgres(db *sql.DB) *PostgresGrantStore {
	return &PostgresGrantStore{db: db}
}

// Register inserts the grant, mapping a key collision to ErrConflict.
func (s *PostgresGrantStore) Register(ctx context.Context, grant *models.VestingGrant) error {
	tag, err := s.db.ExecContext(ctx, `
		INSERT INTO vesting_grants
			(beneficiary, total_allocation, unlock_pct, start_time, cliff_seconds, vesting_seconds)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		ON CONFLICT (beneficiary) DO NOTHING
	`, grant.Beneficiary.String(), grant.TotalAllocation, int64(grant.UnlockPct),
		grant.StartTime, int64(grant.CliffDuration/time.Second), int64(grant.VestingDuration/time.Second))
	if err != nil {
		return fmt.Errorf("register grant: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("register grant: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// Get returns the grant, or ErrNotFound.
func (s *PostgresGrantStore) Get(ctx context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error) {
	var (
		grant                     models.VestingGrant
		unlockPct, cliffS, vestS  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT beneficiary, total_allocation::text, unlock_pct, start_time,
		       cliff_seconds, vesting_seconds,
		       initial_claimed, initial_unlock_claimed::text, total_claimed::text
		FROM vesting_grants WHERE beneficiary = $1
	`, beneficiary.String()).Scan(
		&grant.Beneficiary, &grant.TotalAllocation, &unlockPct, &grant.StartTime,
		&cliffS, &vestS,
		&grant.InitialClaimed, &grant.InitialUnlockClaimed, &grant.TotalClaimed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get grant: %w", err)
	}
	grant.UnlockPct = uint64(unlockPct)
	grant.CliffDuration = time.Duration(cliffS) * time.Second
	grant.VestingDuration = time.Duration(vestS) * time.Second
	return &grant, nil
}

// CommitInitialClaim flips the claimed flag and books the unlock amount in
// one conditional UPDATE.
func (s *PostgresGrantStore) CommitInitialClaim(ctx context.Context, beneficiary domain.BeneficiaryID, amount domain.Amount) error {
	tag, err := s.db.ExecContext(ctx, `
		UPDATE vesting_grants SET
			initial_claimed = TRUE,
			initial_unlock_claimed = $2::numeric,
			total_claimed = total_claimed + $2::numeric
		WHERE beneficiary = $1 AND initial_claimed = FALSE
	`, beneficiary.String(), amount)
	if err != nil {
		return fmt.Errorf("commit initial claim: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit initial claim: %w", err)
	}
	if rows == 0 {
		exists, err := s.exists(ctx, beneficiary)
		if err != nil {
			return err
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

// CommitVestedClaim adds amount to total_claimed under a compare-and-swap on
// the expected claimed total.
func (s *PostgresGrantStore) CommitVestedClaim(ctx context.Context, beneficiary domain.BeneficiaryID, amount, expectedClaimed domain.Amount) error {
	tag, err := s.db.ExecContext(ctx, `
		UPDATE vesting_grants SET total_claimed = total_claimed + $2::numeric
		WHERE beneficiary = $1 AND total_claimed = $3::numeric
	`, beneficiary.String(), amount, expectedClaimed)
	if err != nil {
		return fmt.Errorf("commit vested claim: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit vested claim: %w", err)
	}
	if rows == 0 {
		exists, err := s.exists(ctx, beneficiary)
		if err != nil {
			return err
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresGrantStore) exists(ctx context.Context, beneficiary domain.BeneficiaryID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM vesting_grants WHERE beneficiary = $1
	`, beneficiary.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get grant: %w", err)
	}
	return true, nil
}
