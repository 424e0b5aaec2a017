package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetRuleSet(ctx context.Context, clientID uuid.UUID) (*rules.RuleSet, error) {
	var rs rules.RuleSet

	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, name, created_at FROM rule_sets WHERE client_id = $1`, clientID,
	).Scan(&rs.ID, &rs.ClientID, &rs.Name, &rs.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rules.ErrNotFound
		}

		return nil, fmt.Errorf("getting rule set: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_set_id, position, name, contains, pattern, min_amount, max_amount, direction, category
		FROM rules WHERE rule_set_id = $1 ORDER BY position ASC`, rs.ID)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r              rules.Rule
			minAmt, maxAmt sql.NullInt64
			dir            sql.NullString
		)

		if err := rows.Scan(&r.ID, &r.RuleSetID, &r.Position, &r.Name, &r.Contains, &r.Pattern, &minAmt, &maxAmt, &dir, &r.Category); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}

		if minAmt.Valid {
			r.MinAmount = &minAmt.Int64
		}

		if maxAmt.Valid {
			r.MaxAmount = &maxAmt.Int64
		}

		if dir.Valid {
			d := transaction.Direction(dir.String)
			r.Direction = &d
		}

		rs.Rules = append(rs.Rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}

	return &rs, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertRuleSet(ctx context.Context, q querier, clientID uuid.UUID, name string) (uuid.UUID, error) {
	var id uuid.UUID

	err := q.QueryRowContext(ctx, `
		INSERT INTO rule_sets (client_id, name) VALUES ($1, COALESCE(NULLIF($2, ''), 'default'))
		ON CONFLICT (client_id) DO UPDATE SET name = CASE WHEN $2 = '' THEN rule_sets.name ELSE EXCLUDED.name END
		RETURNING id`, clientID, name,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting rule set: %w", err)
	}

	return id, nil
}

func insertRule(ctx context.Context, q querier, r *rules.Rule) error {
	err := q.QueryRowContext(ctx, `
		INSERT INTO rules (rule_set_id, position, name, contains, pattern, min_amount, max_amount, direction, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		r.RuleSetID, r.Position, r.Name, r.Contains, r.Pattern, r.MinAmount, r.MaxAmount, r.Direction, r.Category,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}

	return nil
}

// SaveRuleSet replaces every rule of the client's set in one database transaction.
func (s *Store) SaveRuleSet(ctx context.Context, rs *rules.RuleSet) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	id, err := upsertRuleSet(ctx, dbTx, rs.ClientID, rs.Name)
	if err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM rules WHERE rule_set_id = $1`, id); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}

	rs.ID = id

	for i := range rs.Rules {
		rs.Rules[i].RuleSetID = id
		if err := insertRule(ctx, dbTx, &rs.Rules[i]); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// AppendRule adds the rule after the last one, creating a "default" set when the client has none.
func (s *Store) AppendRule(ctx context.Context, clientID uuid.UUID, rule *rules.Rule) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	// The upsert row-locks the set, which serializes concurrent appends.
	id, err := upsertRuleSet(ctx, dbTx, clientID, "")
	if err != nil {
		return err
	}

	if err := dbTx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), -1) + 1 FROM rules WHERE rule_set_id = $1`, id,
	).Scan(&rule.Position); err != nil {
		return fmt.Errorf("finding last position: %w", err)
	}

	rule.RuleSetID = id
	if err := insertRule(ctx, dbTx, rule); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
