package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/sentinel"
)

// PostgresActionStore persists timelocked actions. MarkExecuted is a
// conditional UPDATE, so concurrent executors serialize on the row and
// exactly one wins.
//
// Schema:
//
//	CREATE TABLE timelock_actions (
//	    id           TEXT PRIMARY KEY,
//	    requester    TEXT NOT NULL,
//	    requested_at TIMESTAMPTZ NOT NULL,
//	    scheduled_at TIMESTAMPTZ NOT NULL,
//	    deadline     TIMESTAMPTZ NOT NULL,
//	    executed     BOOLEAN NOT NULL DEFAULT FALSE,
//	    payload      JSONB NOT NULL
//	);
type PostgresActionStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed action store.
func NewPostgres(db *sql.DB) *PostgresActionStore {
	return &PostgresActionStore{db: db}
}

// Create inserts the action, mapping a key collision to ErrConflict.
func (s *PostgresActionStore) Create(ctx context.Context, action *models.TimelockedAction) error {
	tag, err := s.db.ExecContext(ctx, `
		INSERT INTO timelock_actions (id, requester, requested_at, scheduled_at, deadline, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, action.ID.String(), action.Requester, action.RequestedAt, action.ScheduledAt,
		action.Deadline, []byte(action.Payload))
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// Get returns the action, or ErrNotFound.
func (s *PostgresActionStore) Get(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error) {
	var (
		action  models.TimelockedAction
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, requester, requested_at, scheduled_at, deadline, executed, payload
		FROM timelock_actions WHERE id = $1
	`, id.String()).Scan(
		&action.ID, &action.Requester, &action.RequestedAt, &action.ScheduledAt,
		&action.Deadline, &action.Executed, &payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	action.Payload = payload
	return &action, nil
}

// MarkExecuted flips the executed flag if it is still clear.
func (s *PostgresActionStore) MarkExecuted(ctx context.Context, id domain.ActionID) error {
	tag, err := s.db.ExecContext(ctx, `
		UPDATE timelock_actions SET executed = TRUE
		WHERE id = $1 AND executed = FALSE
	`, id.String())
	if err != nil {
		return fmt.Errorf("mark executed: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark executed: %w", err)
	}
	if rows == 0 {
		exists, err := s.exists(ctx, id)
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

// ClearExecuted reverts the flag after a failed payload.
func (s *PostgresActionStore) ClearExecuted(ctx context.Context, id domain.ActionID) error {
	tag, err := s.db.ExecContext(ctx, `
		UPDATE timelock_actions SET executed = FALSE WHERE id = $1
	`, id.String())
	if err != nil {
		return fmt.Errorf("clear executed: %w", err)
	}
	rows, err := tag.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear executed: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresActionStore) exists(ctx context.Context, id domain.ActionID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM timelock_actions WHERE id = $1
	`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get action: %w", err)
	}
	return true, nil
}
