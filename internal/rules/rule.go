package rules

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

// Uncategorized is assigned when no rule matches.
const Uncategorized = "sin_categoria"

var (
	ErrNotFound    = errors.New("rule set not found")
	ErrInvalidRule = errors.New("invalid rule")
)

// Rule assigns Category when every non-empty predicate holds.
type Rule struct {
	ID        uuid.UUID
	RuleSetID uuid.UUID
	Position  int
	Name      string
	Contains  string // substring of the normalized description
	Pattern   string // regexp over the normalized description
	MinAmount *int64 // bounds apply to the absolute amount
	MaxAmount *int64
	Direction *transaction.Direction
	Category  string
}

func (r *Rule) Validate() error {
	if r.Category == "" {
		return fmt.Errorf("%w: %q has no category", ErrInvalidRule, r.Name)
	}

	if r.MinAmount != nil && r.MaxAmount != nil && *r.MinAmount > *r.MaxAmount {
		return fmt.Errorf("%w: %q min amount above max", ErrInvalidRule, r.Name)
	}

	if r.Direction != nil && !r.Direction.Valid() {
		return fmt.Errorf("%w: %q direction %q", ErrInvalidRule, r.Name, *r.Direction)
	}

	return nil
}

// RuleSet is a client's ordered rule chain.
type RuleSet struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	Rules     []Rule
	CreatedAt time.Time
}
