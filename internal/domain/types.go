// Package domain contains the core entities for validating sick-leave certificates
// ("sykmeldinger") against the regulatory business rules: rule outcome statuses,
// the certificate record the rules read, and the validation result returned to callers.
package domain

import (
	"errors"
	"fmt"
)

// Status is the outcome attached to a rule and the overall verdict of a validation.
type Status string

const (
	OK                Status = "OK"
	INVALID           Status = "INVALID"
	MANUAL_PROCESSING Status = "MANUAL_PROCESSING"
)

var (
	ErrInvalidStatus    = errors.New("invalid rule status")
	ErrDuplicateRuleID  = errors.New("duplicate rule id")
	ErrMissingPredicate = errors.New("rule has no predicate")
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case OK, INVALID, MANUAL_PROCESSING:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Precedence orders statuses for aggregation. Higher wins:
// INVALID > MANUAL_PROCESSING > OK.
func (s Status) Precedence() int {
	switch s {
	case INVALID:
		return 2
	case MANUAL_PROCESSING:
		return 1
	default:
		return 0
	}
}

// Max returns whichever of s and other has the higher precedence.
func (s Status) Max(other Status) Status {
	if other.Precedence() > s.Precedence() {
		return other
	}
	return s
}

// LogFields returns structured logging fields for the verdict.
func (s Status) LogFields() map[string]any {
	return map[string]any{
		"status":          string(s),
		"is_valid":        s.IsValid(),
		"requires_review": s == MANUAL_PROCESSING,
		"rejected":        s == INVALID,
	}
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.IsValid() {
		return "", fmt.Errorf("parsing status %q: %w", value, ErrInvalidStatus)
	}
	return s, nil
}
