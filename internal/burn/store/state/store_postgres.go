package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aurum/internal/burn/models"
	"aurum/pkg/domain"
)

// PostgresStateStore persists the singleton burn state. The admission check
// and bookkeeping commit in one conditional UPDATE so concurrent burns
// serialize on the row; a denial changes nothing.
//
// Schema:
//
//	CREATE TABLE burn_state (
//	    id              SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
//	    total_burned    NUMERIC(78,0) NOT NULL DEFAULT 0,
//	    last_burn_time  TIMESTAMPTZ,
//	    first_burn_done BOOLEAN NOT NULL DEFAULT FALSE
//	);
type PostgresStateStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed burn state store.
func NewPostgres(db *sql.DB) *PostgresStateStore {
	return &PostgresStateStore{db: db}
}

// Get returns the current burn state, zero state if the row does not exist.
func (s *PostgresStateStore) Get(ctx context.Context) (*models.BurnState, error) {
	var (
		state    models.BurnState
		lastBurn sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_burned::text, last_burn_time, first_burn_done
		FROM burn_state WHERE id = 1
	`).Scan(&state.TotalBurned, &lastBurn, &state.FirstBurnDone)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.BurnState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get burn state: %w", err)
	}
	if lastBurn.Valid {
		state.LastBurnTime = lastBurn.Time
	}
	return &state, nil
}

// Apply admits and commits the burn in one atomic statement: the WHERE clause
// encodes the first-burn exemption, the interval gate and the cumulative cap.
// Zero rows updated means denial, and the state is re-read to name the reason.
func (s *PostgresStateStore) Apply(ctx context.Context, amount domain.Amount, schedule models.Schedule, now time.Time) (*models.Decision, error) {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO burn_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return nil, fmt.Errorf("init burn state: %w", err)
	}

	intervalSec := int64(schedule.Interval / time.Second)
	tag, err := s.db.ExecContext(ctx, `
		UPDATE burn_state SET
			total_burned = total_burned + $1::numeric,
			last_burn_time = $2,
			first_burn_done = TRUE
		WHERE id = 1
		  AND (first_burn_done = FALSE OR last_burn_time + make_interval(secs => $3) <= $2)
		  AND total_burned + $1::numeric <= $4::numeric
	`, amount, now, intervalSec, schedule.MaxBurnCap)
	if err != nil {
		return nil, fmt.Errorf("apply burn: %w", err)
	}

	rows, err := tag.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("apply burn: %w", err)
	}

	state, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	decision := &models.Decision{
		RemainingCap: schedule.MaxBurnCap.Minus(state.TotalBurned),
		State:        *state,
	}
	if rows == 1 {
		decision.Admitted = true
		return decision, nil
	}

	if state.TotalBurned.Plus(amount).Cmp(schedule.MaxBurnCap) > 0 {
		decision.Reason = models.ReasonExceedsCap
	} else {
		decision.Reason = models.ReasonTooEarly
		decision.NextAllowedAt = state.LastBurnTime.Add(schedule.Interval)
	}
	return decision, nil
}
