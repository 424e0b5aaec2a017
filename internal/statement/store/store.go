package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/statement"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectUploadColumns = `
	id, client_id, account_id, bank, filename, content, status, error, opening_balance, closing_balance,
	movements_total, created_at
`

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*statement.Upload, error) {
	var (
		u                statement.Upload
		bank, status     string
		opening, closing sql.NullInt64
		total            sql.NullInt64
	)

	if err := s.Scan(
		&u.ID, &u.ClientID, &u.AccountID, &bank, &u.Filename, &u.Content, &status, &u.Error,
		&opening, &closing, &total, &u.CreatedAt,
	); err != nil {
		return nil, err
	}

	u.Bank = statement.Bank(bank)
	u.Status = statement.UploadStatus(status)

	if opening.Valid {
		u.OpeningBalance = &opening.Int64
	}

	if closing.Valid {
		u.ClosingBalance = &closing.Int64
	}

	if total.Valid {
		u.MovementsTotal = &total.Int64
	}

	return &u, nil
}

func (s *Store) CreateUpload(ctx context.Context, u *statement.Upload) error {
	query := `
		INSERT INTO statement_uploads (client_id, account_id, bank, filename, content, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.ClientID, u.AccountID, u.Bank, u.Filename, u.Content, u.Status,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating upload: %w", err)
	}

	return nil
}

func (s *Store) GetUpload(ctx context.Context, id uuid.UUID) (*statement.Upload, error) {
	query := `SELECT ` + selectUploadColumns + ` FROM statement_uploads WHERE id = $1`

	u, err := scanUpload(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, statement.ErrUploadNotFound
		}

		return nil, fmt.Errorf("getting upload: %w", err)
	}

	return u, nil
}

func (s *Store) ListUploads(ctx context.Context, filter statement.UploadFilter) ([]*statement.Upload, error) {
	query := `SELECT ` + selectUploadColumns + ` FROM statement_uploads WHERE TRUE`

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

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, *filter.Status)
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*statement.Upload

	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}

		uploads = append(uploads, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating uploads: %w", err)
	}

	return uploads, nil
}

func (s *Store) MarkImported(ctx context.Context, id uuid.UUID, stats statement.ImportStats) error {
	return s.setStatus(ctx, `
		UPDATE statement_uploads
		SET status = 'imported', error = '', opening_balance = $1, closing_balance = $2, movements_total = $3,
			updated_at = NOW()
		WHERE id = $4`, stats.OpeningBalance, stats.ClosingBalance, stats.MovementsTotal, id)
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.setStatus(ctx, `
		UPDATE statement_uploads SET status = 'failed', error = $1, updated_at = NOW()
		WHERE id = $2`, reason, id)
}

func (s *Store) setStatus(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating upload: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return statement.ErrUploadNotFound
	}

	return nil
}
