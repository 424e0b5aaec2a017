package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=rules
type Repository interface {
	GetRuleSet(ctx context.Context, clientID uuid.UUID) (*RuleSet, error)
	SaveRuleSet(ctx context.Context, rs *RuleSet) error
	AppendRule(ctx context.Context, clientID uuid.UUID, rule *Rule) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) RuleSet(ctx context.Context, clientID uuid.UUID) (*RuleSet, error) {
	return s.repo.GetRuleSet(ctx, clientID)
}

// Engine loads and compiles the client's rules. A client without rules gets an empty engine.
func (s *Service) Engine(ctx context.Context, clientID uuid.UUID) (*Engine, error) {
	rs, err := s.repo.GetRuleSet(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return NewEngine(nil)
	}

	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	return NewEngine(rs.Rules)
}

// Save replaces the client's rule chain. Positions follow slice order.
func (s *Service) Save(ctx context.Context, clientID uuid.UUID, name string, rules []Rule) (*RuleSet, error) {
	for i := range rules {
		rules[i].Position = i
	}

	if _, err := NewEngine(rules); err != nil {
		return nil, err
	}

	rs := &RuleSet{ClientID: clientID, Name: name, Rules: rules}
	if err := s.repo.SaveRuleSet(ctx, rs); err != nil {
		return nil, fmt.Errorf("saving rules: %w", err)
	}

	return rs, nil
}

// Learn remembers a manual categorization as a "contains" rule at the end of the chain.
func (s *Service) Learn(ctx context.Context, clientID uuid.UUID, contains, category string) (*Rule, error) {
	folded := enc.Fold(contains)
	if folded == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidRule)
	}

	r := &Rule{
		Name:     "learned: " + folded,
		Contains: folded,
		Category: category,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.AppendRule(ctx, clientID, r); err != nil {
		return nil, fmt.Errorf("appending rule: %w", err)
	}

	return r, nil
}
