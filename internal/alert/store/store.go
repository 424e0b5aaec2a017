package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
)

// Store is the alert outbox. A notifier outside this service reads undispatched rows.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, events []alert.Event) (int, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	inserted := 0

	for _, e := range events {
		res, err := dbTx.ExecContext(ctx, `
			INSERT INTO alert_events (dedup_key, run_id, type, severity, transaction_id, message)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (dedup_key) DO NOTHING`,
			e.DedupKey, e.RunID, e.Type, e.Severity, e.TransactionID, e.Message,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting alert: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting alert: %w", err)
		}

		inserted += int(n)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	return inserted, nil
}

func (s *Store) ListByRun(ctx context.Context, runID uuid.UUID) ([]alert.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, type, severity, transaction_id, message, dedup_key, created_at, dispatched_at
		FROM alert_events WHERE run_id = $1 ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var events []alert.Event

	for rows.Next() {
		var (
			e             alert.Event
			typ, severity string
		)

		if err := rows.Scan(
			&e.ID, &e.RunID, &typ, &severity, &e.TransactionID, &e.Message, &e.DedupKey, &e.CreatedAt, &e.DispatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}

		e.Type = alert.Type(typ)
		e.Severity = alert.Severity(severity)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	return events, nil
}
