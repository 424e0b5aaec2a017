package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectRunColumns = `
	id, client_id, account_id, period_year, period_month, state, step, total_steps,
	imported, matched, alerts, errors, pause_requested, cancel_requested, error, failed_step,
	version, started_at, completed_at, updated_at
`

func scanRun(s scanner) (*pipeline.Run, error) {
	var (
		r                 pipeline.Run
		month             int
		state, failedStep string
	)

	if err := s.Scan(
		&r.ID, &r.ClientID, &r.AccountID, &r.Period.Year, &month, &state, &r.Step, &r.TotalSteps,
		&r.Counters.Imported, &r.Counters.Matched, &r.Counters.Alerts, &r.Counters.Errors,
		&r.PauseRequested, &r.CancelRequested, &r.Error, &failedStep,
		&r.Version, &r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Period.Month = time.Month(month)
	r.State = pipeline.State(state)
	r.FailedStep = pipeline.State(failedStep)

	return &r, nil
}

func (s *Store) CreateRun(ctx context.Context, run *pipeline.Run) error {
	query := `
		INSERT INTO pipeline_runs (client_id, account_id, period_year, period_month, state, step, total_steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, started_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		run.ClientID, run.AccountID, run.Period.Year, int(run.Period.Month), run.State, run.Step, run.TotalSteps,
	).Scan(&run.ID, &run.Version, &run.StartedAt, &run.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return pipeline.ErrRunActive
		}

		return fmt.Errorf("creating run: %w", err)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*pipeline.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM pipeline_runs WHERE id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pipeline.ErrNotFound
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, filter pipeline.ListFilter) ([]*pipeline.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM pipeline_runs WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.ClientID != nil {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)

		args = append(args, *filter.ClientID)
		argIdx++
	}

	if filter.AccountID != "" {
		query += fmt.Sprintf(" AND account_id = $%d", argIdx)

		args = append(args, filter.AccountID)
		argIdx++
	}

	if filter.Period != nil {
		query += fmt.Sprintf(" AND period_year = $%d AND period_month = $%d", argIdx, argIdx+1)

		args = append(args, filter.Period.Year, int(filter.Period.Month))
		argIdx += 2
	}

	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argIdx)

		args = append(args, *filter.State)
	}

	query += " ORDER BY started_at DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*pipeline.Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// UpdateRun is a compare-and-set on version.
func (s *Store) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	query := `
		UPDATE pipeline_runs SET
			state = $1,
			step = $2,
			imported = $3,
			matched = $4,
			alerts = $5,
			errors = $6,
			error = $7,
			failed_step = $8,
			pause_requested = CASE WHEN $1 IN ('paused', 'failed', 'completed') THEN FALSE ELSE pause_requested END,
			cancel_requested = CASE WHEN $1 IN ('paused', 'failed', 'completed') THEN FALSE ELSE cancel_requested END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING version, pause_requested, cancel_requested, completed_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		run.State, run.Step, run.Counters.Imported, run.Counters.Matched, run.Counters.Alerts, run.Counters.Errors,
		run.Error, run.FailedStep, run.ID, run.Version,
	).Scan(&run.Version, &run.PauseRequested, &run.CancelRequested, &run.CompletedAt, &run.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.busyOrMissing(ctx, run.ID)
		}

		return fmt.Errorf("updating run: %w", err)
	}

	return nil
}

func (s *Store) busyOrMissing(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pipeline_runs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking run: %w", err)
	}

	if !exists {
		return pipeline.ErrNotFound
	}

	return pipeline.ErrRunBusy
}

func (s *Store) RequestPause(ctx context.Context, id uuid.UUID) error {
	return s.setFlag(ctx, `UPDATE pipeline_runs SET pause_requested = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) RequestCancel(ctx context.Context, id uuid.UUID) error {
	return s.setFlag(ctx, `UPDATE pipeline_runs SET cancel_requested = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) setFlag(ctx context.Context, query string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("flagging run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return pipeline.ErrNotFound
	}

	return nil
}
