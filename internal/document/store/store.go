package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/document"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectDocumentColumns = `
	id, client_id, type, folio, emission_date, issuer_rut, issuer_name, total, currency
`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*document.Document, error) {
	var (
		d   document.Document
		typ string
	)

	if err := s.Scan(
		&d.ID, &d.ClientID, &typ, &d.Folio, &d.EmissionDate, &d.IssuerRUT, &d.IssuerName, &d.Total, &d.Currency,
	); err != nil {
		return nil, err
	}

	d.Type = document.Type(typ)

	return &d, nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM accounting_documents WHERE id = $1`

	d, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, document.ErrNotFound
		}

		return nil, fmt.Errorf("getting document: %w", err)
	}

	return d, nil
}

func (s *Store) ListDocuments(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM accounting_documents WHERE client_id = $1`

	args := []any{filter.ClientID}
	argIdx := 2

	if filter.IssuerRUT != "" {
		query += fmt.Sprintf(" AND issuer_rut = $%d", argIdx)

		args = append(args, filter.IssuerRUT)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND emission_date >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND emission_date <= $%d", argIdx)

		args = append(args, *filter.To)
	}

	query += " ORDER BY emission_date ASC, id ASC"

	return s.query(ctx, query, args...)
}

func (s *Store) FindCandidates(ctx context.Context, q document.CandidateQuery) ([]*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + `
		FROM accounting_documents
		WHERE client_id = $1
		  AND ((emission_date BETWEEN $2 AND $3) OR (total BETWEEN $4 AND $5))
		ORDER BY id ASC`

	return s.query(ctx, query, q.ClientID, q.From, q.To, q.MinTotal, q.MaxTotal)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*document.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document

	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}
