package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	enc "github.com/MrJamesThe3rd/conciliador/internal/encoding"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type compiled struct {
	rule     Rule
	contains string
	re       *regexp.Regexp
}

// Engine evaluates an ordered rule chain. It is immutable and safe for concurrent use.
type Engine struct {
	rules []compiled
}

// NewEngine compiles the rules in Position order. An invalid pattern fails the whole chain.
func NewEngine(rules []Rule) (*Engine, error) {
	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b Rule) int { return a.Position - b.Position })

	e := &Engine{rules: make([]compiled, 0, len(ordered))}

	for _, r := range ordered {
		if err := r.Validate(); err != nil {
			return nil, err
		}

		c := compiled{rule: r, contains: enc.Fold(r.Contains)}

		if r.Pattern != "" {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: %q pattern: %v", ErrInvalidRule, r.Name, err)
			}

			c.re = re
		}

		e.rules = append(e.rules, c)
	}

	return e, nil
}

// Match returns the first rule that applies to tx.
func (e *Engine) Match(tx *transaction.Transaction) (*Rule, bool) {
	desc := tx.NormalizedDescription
	if desc == "" {
		desc = enc.Fold(tx.Description)
	}

	abs := tx.AbsAmount()
	dir := tx.Direction()

	for i := range e.rules {
		c := &e.rules[i]

		if c.contains != "" && !strings.Contains(desc, c.contains) {
			continue
		}

		if c.re != nil && !c.re.MatchString(desc) {
			continue
		}

		if c.rule.MinAmount != nil && abs < *c.rule.MinAmount {
			continue
		}

		if c.rule.MaxAmount != nil && abs > *c.rule.MaxAmount {
			continue
		}

		if c.rule.Direction != nil && *c.rule.Direction != dir {
			continue
		}

		return &c.rule, true
	}

	return nil, false
}

// Categorize returns the category of the first matching rule, or Uncategorized.
func (e *Engine) Categorize(tx *transaction.Transaction) string {
	if r, ok := e.Match(tx); ok {
		return r.Category
	}

	return Uncategorized
}

func (e *Engine) Len() int {
	return len(e.rules)
}
