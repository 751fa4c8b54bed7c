package rules

import (
	"github.com/smregler-server/internal/domain"
)

// Aggregate folds the fired rules of several chains into one verdict. Hits keep the
// order in which chains and rules were evaluated; the status is the highest-precedence
// status among them, or OK when nothing fired.
func Aggregate(results ...[]domain.RuleInfo) domain.ValidationResult {
	status := domain.OK
	hits := []domain.RuleInfo{}
	for _, result := range results {
		for _, hit := range result {
			status = status.Max(hit.Status)
			hits = append(hits, hit)
		}
	}
	return domain.ValidationResult{Status: status, RuleHits: hits}
}
