package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	id, client_id, account_id, statement_id, date, description, normalized_description,
	amount, currency, category, status, document_id, dedup_key, superseded_by, created_at, updated_at
`

func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var statusStr string

	var category sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.ClientID, &tx.AccountID, &tx.StatementID, &tx.Date, &tx.Description, &tx.NormalizedDescription,
		&tx.Amount, &tx.Currency, &category, &statusStr, &tx.DocumentID, &tx.DedupKey, &tx.SupersededBy,
		&tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tx.Status = transaction.Status(statusStr)

	if category.Valid {
		tx.Category = &category.String
	}

	return &tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions WHERE TRUE`

	var args []any

	argIdx := 1

	if !filter.IncludeSuperseded {
		query += " AND superseded_by IS NULL"
	}

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
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
	}

	if filter.Uncategorized {
		query += " AND category IS NULL"
	}

	query += " ORDER BY date ASC, created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) SetCategory(ctx context.Context, id uuid.UUID, category string) error {
	return s.exec(ctx, `UPDATE transactions SET category = $1, updated_at = NOW() WHERE id = $2`, category, id)
}

// SetStatus only touches unlinked rows; linking goes through ApplyDecision.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status transaction.Status) error {
	return s.exec(ctx, `
		UPDATE transactions SET status = $1, updated_at = NOW()
		WHERE id = $2 AND document_id IS NULL`, status, id)
}

func (s *Store) Supersede(ctx context.Context, id, keeperID uuid.UUID) error {
	return s.exec(ctx, `
		UPDATE transactions SET superseded_by = $1, updated_at = NOW()
		WHERE id = $2 AND superseded_by IS NULL`, keeperID, id)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// ApplyDecision updates the link and appends the audit note in one database transaction.
func (s *Store) ApplyDecision(ctx context.Context, d transaction.Decision) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE transactions SET status = $1, document_id = $2, updated_at = NOW()
		WHERE id = $3 AND superseded_by IS NULL`, d.Status, d.DocumentID, d.TransactionID)
	if err != nil {
		return fmt.Errorf("updating link: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return transaction.ErrNotFound
	}

	if err := insertNote(ctx, dbTx, &d.Note); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertNote(ctx context.Context, q queryRower, n *transaction.Note) error {
	query := `
		INSERT INTO transaction_notes (transaction_id, action, document_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := q.QueryRowContext(ctx, query, n.TransactionID, n.Action, n.DocumentID, n.Text).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}

	return nil
}

func (s *Store) AddNote(ctx context.Context, note *transaction.Note) error {
	return insertNote(ctx, s.db, note)
}

func (s *Store) ListNotes(ctx context.Context, id uuid.UUID) ([]*transaction.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, action, document_id, text, created_at
		FROM transaction_notes WHERE transaction_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []*transaction.Note

	for rows.Next() {
		var n transaction.Note

		var action string
		if err := rows.Scan(&n.ID, &n.TransactionID, &action, &n.DocumentID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}

		n.Action = transaction.NoteAction(action)
		notes = append(notes, &n)
	}

	return notes, rows.Err()
}

func importLockKey(clientID uuid.UUID, accountID string) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte{0})
	h.Write(clientID[:])
	h.Write([]byte{0})
	h.Write([]byte(accountID))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport serializes imports per client account with a transaction-scoped advisory lock.
func (s *Store) BeginImport(ctx context.Context, clientID uuid.UUID, accountID string) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(clientID, accountID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

func (itx *importTx) Rollback() error {
	err := itx.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

func (itx *importTx) ExistingKeys(ctx context.Context, clientID uuid.UUID, accountID string, keys []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := itx.tx.QueryContext(ctx, `
		SELECT dedup_key, id FROM transactions
		WHERE client_id = $1 AND account_id = $2 AND dedup_key = ANY($3)`, clientID, accountID, keys)
	if err != nil {
		return nil, fmt.Errorf("finding existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			id  uuid.UUID
		)

		if err := rows.Scan(&key, &id); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}

		out[key] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}

	return out, nil
}

// CreateTransactions inserts the batch, ignoring rows whose dedup key already exists for the
// client's account. Ignored rows keep a nil ID.
func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			client_id, account_id, statement_id, date, description, normalized_description,
			amount, currency, category, status, dedup_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (client_id, account_id, dedup_key) DO NOTHING
		RETURNING id, created_at
	`

	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, query,
			tx.ClientID,
			tx.AccountID,
			tx.StatementID,
			tx.Date,
			tx.Description,
			tx.NormalizedDescription,
			tx.Amount,
			tx.Currency,
			tx.Category,
			tx.Status,
			tx.DedupKey,
		).Scan(&tx.ID, &tx.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
