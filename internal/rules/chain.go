package rules

import (
	"errors"
	"fmt"

	"github.com/smregler-server/internal/domain"
)

// Chain is an ordered, named set of rules over one input type. A chain is built once
// at startup and is safe for concurrent use because it is never modified.
type Chain[T any] struct {
	name  string
	rules []Rule[T]
}

// Outcome is the result of evaluating one rule against one input.
type Outcome[T any] struct {
	Rule  Rule[T]
	Fired bool
}

// Catalog describes the rules of a chain independently of its input type.
type Catalog interface {
	Name() string
	Infos() []domain.RuleInfo
}

// NewChain builds a chain. Rule ids, when present, must be unique within the chain.
func NewChain[T any](name string, rules ...Rule[T]) (*Chain[T], error) {
	if name == "" {
		return nil, errors.New("rule chain without name")
	}

	seen := make(map[int]string, len(rules))
	for _, rule := range rules {
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("rule chain %s: %w", name, err)
		}
		if rule.ID == nil {
			continue
		}
		if other, dup := seen[*rule.ID]; dup {
			return nil, fmt.Errorf("rule chain %s: rules %s and %s share id %d: %w", name, other, rule.Name, *rule.ID, domain.ErrDuplicateRuleID)
		}
		seen[*rule.ID] = rule.Name
	}

	owned := make([]Rule[T], len(rules))
	copy(owned, rules)
	return &Chain[T]{name: name, rules: owned}, nil
}

// MustNewChain is NewChain for the fixed rule tables; it panics on a malformed table.
func MustNewChain[T any](name string, rules ...Rule[T]) *Chain[T] {
	chain, err := NewChain(name, rules...)
	if err != nil {
		panic(err)
	}
	return chain
}

// Name returns the chain name.
func (c *Chain[T]) Name() string { return c.name }

// Len returns the number of rules in the chain.
func (c *Chain[T]) Len() int { return len(c.rules) }

// Rules returns the rules in declaration order.
func (c *Chain[T]) Rules() []Rule[T] {
	out := make([]Rule[T], len(c.rules))
	copy(out, c.rules)
	return out
}

// Infos returns the description of every rule in declaration order.
func (c *Chain[T]) Infos() []domain.RuleInfo {
	infos := make([]domain.RuleInfo, 0, len(c.rules))
	for _, rule := range c.rules {
		infos = append(infos, rule.Info())
	}
	return infos
}

// Evaluate runs every rule against input and returns all outcomes in declaration order.
func (c *Chain[T]) Evaluate(input T) []Outcome[T] {
	outcomes := make([]Outcome[T], 0, len(c.rules))
	for _, rule := range c.rules {
		outcomes = append(outcomes, Outcome[T]{Rule: rule, Fired: rule.Evaluate(input)})
	}
	return outcomes
}

// ExecuteFlow runs every rule against input and returns the rules that fired, in
// declaration order. No rule short-circuits or suppresses another.
func (c *Chain[T]) ExecuteFlow(input T) []domain.RuleInfo {
	hits := []domain.RuleInfo{}
	for _, outcome := range c.Evaluate(input) {
		if outcome.Fired {
			hits = append(hits, outcome.Rule.Info())
		}
	}
	return hits
}
