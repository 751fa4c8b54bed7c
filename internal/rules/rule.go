// Package rules implements the rule-chain evaluation engine: named, severity-tagged
// predicates over a certificate fragment, grouped in ordered chains that are evaluated
// exhaustively, and an aggregator that folds the fired rules of several chains into one
// verdict.
package rules

import (
	"errors"
	"fmt"

	"github.com/smregler-server/internal/domain"
)

// Rule is one regulatory check. Predicates are pure and total: when a field they depend
// on is absent they return false instead of failing.
type Rule[T any] struct {
	Name        string
	ID          *int // nil for rules that have not been assigned an id yet
	Description string
	Status      domain.Status
	Predicate   func(T) bool
}

// Evaluate reports whether the rule fires for input.
func (r Rule[T]) Evaluate(input T) bool {
	return r.Predicate(input)
}

// Info returns the hit record for the rule.
func (r Rule[T]) Info() domain.RuleInfo {
	var id *int
	if r.ID != nil {
		v := *r.ID
		id = &v
	}
	return domain.RuleInfo{
		RuleName:    r.Name,
		RuleID:      id,
		Status:      r.Status,
		Description: r.Description,
	}
}

func (r Rule[T]) validate() error {
	if r.Name == "" {
		return errors.New("rule without name")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("rule %s: %w", r.Name, domain.ErrInvalidStatus)
	}
	if r.Predicate == nil {
		return fmt.Errorf("rule %s: %w", r.Name, domain.ErrMissingPredicate)
	}
	return nil
}

func id(v int) *int { return &v }
