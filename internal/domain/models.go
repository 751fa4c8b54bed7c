package domain

import (
	"errors"
	"fmt"
)

// ValidationRequest is one fully parsed certificate together with its request metadata.
type ValidationRequest struct {
	Envelope          Envelope          `json:"envelope"`
	HealthInformation HealthInformation `json:"health_information"`
	Metadata          RuleMetadata      `json:"metadata"`
}

// Validate checks the request shape. Missing certificate content is left to the rules.
func (r *ValidationRequest) Validate() error {
	if r.Metadata.SignatureDate.IsZero() {
		return NewValidationError("metadata.signature_date", "signature date is required", nil)
	}
	if r.Metadata.ReceivedDate.IsZero() {
		return NewValidationError("metadata.received_date", "received date is required", nil)
	}
	for i, d := range r.HealthInformation.BiDiagnoses {
		if d.Code == "" {
			return NewValidationError(fmt.Sprintf("health_information.bi_diagnoses[%d].code", i), "code is required", d)
		}
	}
	return nil
}

// RuleInfo describes one rule that fired.
type RuleInfo struct {
	RuleName    string `json:"rule_name"`
	RuleID      *int   `json:"rule_id"`
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// ValidationResult is the verdict for one certificate.
type ValidationResult struct {
	Status   Status     `json:"status"`
	RuleHits []RuleInfo `json:"rule_hits"`
}

// HitIDs returns the ids of the fired rules; unassigned ids are skipped.
func (v *ValidationResult) HitIDs() []int {
	ids := make([]int, 0, len(v.RuleHits))
	for _, hit := range v.RuleHits {
		if hit.RuleID != nil {
			ids = append(ids, *hit.RuleID)
		}
	}
	return ids
}

// Validate ensures the result is internally consistent.
func (v *ValidationResult) Validate() error {
	if !v.Status.IsValid() {
		return fmt.Errorf("validation result: %w", ErrInvalidStatus)
	}
	highest := OK
	for _, hit := range v.RuleHits {
		if !hit.Status.IsValid() {
			return fmt.Errorf("validation result: rule %s: %w", hit.RuleName, ErrInvalidStatus)
		}
		highest = highest.Max(hit.Status)
	}
	if highest != v.Status {
		return fmt.Errorf("validation result: %w", errors.New("status does not match rule hits"))
	}
	return nil
}
