package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/MrJamesThe3rd/conciliador/internal/matching"
)

type Store struct {
	db      *sql.DB
	typeMap *pgtype.Map
}

func New(db *sql.DB) *Store {
	return &Store{db: db, typeMap: pgtype.NewMap()}
}

func (s *Store) ReplaceCandidates(ctx context.Context, transactionID uuid.UUID, candidates []matching.Candidate) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM match_candidates WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("clearing candidates: %w", err)
	}

	for rank, c := range candidates {
		reasons := make([]string, len(c.Reasons))
		for i, r := range c.Reasons {
			reasons[i] = string(r)
		}

		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO match_candidates (transaction_id, document_id, rank, score, reasons, amount_diff, day_diff)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			transactionID, c.DocumentID, rank, c.Score, reasons, c.AmountDiff, c.DayDiff,
		)
		if err != nil {
			return fmt.Errorf("inserting candidate: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListCandidates(ctx context.Context, transactionID uuid.UUID) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, score, reasons, amount_diff, day_diff
		FROM match_candidates WHERE transaction_id = $1 ORDER BY rank ASC`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	var out []matching.Candidate

	for rows.Next() {
		var (
			c       matching.Candidate
			reasons []string
		)

		if err := rows.Scan(&c.DocumentID, &c.Score, s.typeMap.SQLScanner(&reasons), &c.AmountDiff, &c.DayDiff); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}

		for _, r := range reasons {
			c.Reasons = append(c.Reasons, matching.Reason(r))
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}

	return out, nil
}

func (s *Store) IsCandidate(ctx context.Context, transactionID, documentID uuid.UUID) (bool, error) {
	var ok bool

	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM match_candidates WHERE transaction_id = $1 AND document_id = $2)`,
		transactionID, documentID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking candidate: %w", err)
	}

	return ok, nil
}
